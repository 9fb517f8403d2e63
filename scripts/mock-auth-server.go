//go:build ignore

// mock-auth-server.go - Local identity provider for testing the API server
//
// Usage:
//   go run scripts/mock-auth-server.go
//
// Serves a JWKS endpoint and mints RS256 tokens carrying the sub, role,
// and phone_number claims the API server expects. The signing key is
// generated at startup (not for production use).
//
// Point the server config at it:
//   jwks:
//     url: "http://localhost:8088/.well-known/jwks.json"
//     issuer: "http://localhost:8088"
//
// Mint a token:
//   curl -s -X POST "http://localhost:8088/token?sub=uid-1&phone=%2B989121234567"
//   curl -s -X POST "http://localhost:8088/token?sub=admin-1&role=admin"

package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	port   = 8088
	issuer = "http://localhost:8088"
	keyID  = "local-dev-key"
)

var signingKey *rsa.PrivateKey

func main() {
	var err error
	signingKey, err = rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		log.Fatalf("generate signing key: %v", err)
	}

	http.HandleFunc("/.well-known/jwks.json", handleJWKS)
	http.HandleFunc("/token", handleToken)
	http.HandleFunc("/health", handleHealth)

	addr := fmt.Sprintf(":%d", port)
	log.Printf("Mock auth server starting on http://localhost%s", addr)
	log.Printf("GET  /.well-known/jwks.json - JWKS with the dev signing key")
	log.Printf("POST /token?sub=<uid>[&role=admin][&phone=<phone>] - Mint an RS256 token")
	log.Printf("GET  /health - Health check")
	log.Fatal(http.ListenAndServe(addr, nil))
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func handleJWKS(w http.ResponseWriter, _ *http.Request) {
	pub := &signingKey.PublicKey
	jwks := map[string]any{
		"keys": []map[string]string{
			{
				"kid": keyID,
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(jwks)
}

func handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	sub := r.URL.Query().Get("sub")
	if sub == "" {
		sub = "uid-local-dev"
	}
	role := r.URL.Query().Get("role")
	if role == "" {
		role = "user"
	}
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		phone = "+989120000000"
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":          issuer,
		"sub":          sub,
		"role":         role,
		"phone_number": phone,
		"iat":          now.Unix(),
		"exp":          now.Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID

	signed, err := token.SignedString(signingKey)
	if err != nil {
		http.Error(w, fmt.Sprintf("sign token: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int((24 * time.Hour).Seconds()),
	})
}
