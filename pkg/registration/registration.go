// Package registration defines the request and response types of the
// account registration flow.
package registration

import "time"

// RegisterRequest represents a registration request. Identity comes
// from the verified token, never from the body; the only client input
// is the optional inviter's referral code.
type RegisterRequest struct {
	ReferralCode string `json:"referral_code,omitempty"`
}

// RegisterResponse represents a registration response
type RegisterResponse struct {
	UID          string    `json:"uid"`
	Phone        string    `json:"phone,omitempty"`
	Status       string    `json:"status"`
	Balance      int64     `json:"balance"`
	ReferralCode string    `json:"referral_code"`
	InvitedBy    string    `json:"invited_by,omitempty"`
	NextCycleAt  time.Time `json:"next_cycle_at"`
	NextTaskAt   time.Time `json:"next_task_at"`
}

// ProfileResponse is the authenticated account summary
type ProfileResponse struct {
	UID               string            `json:"uid"`
	Phone             string            `json:"phone,omitempty"`
	Status            string            `json:"status"`
	Balance           int64             `json:"balance"`
	TotalEarned       int64             `json:"total_earned"`
	ReferralCode      string            `json:"referral_code"`
	InvitedBy         string            `json:"invited_by,omitempty"`
	TaskProgress      map[string]string `json:"task_progress"`
	NextCycleAt       time.Time         `json:"next_cycle_at"`
	NextTaskAt        time.Time         `json:"next_task_at"`
	VerifiedInvitesL1 int               `json:"verified_invites_l1"`
	CreatedAt         time.Time         `json:"created_at"`
}
