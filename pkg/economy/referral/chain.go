// Package referral maintains ancestor chains and fans reward commissions
// out to them asynchronously.
package referral

import "github.com/kamyabi/economy-engine/pkg/economy"

// BuildChain derives a new account's ancestor chain from its inviter's
// record at registration time. Level 1 is the direct inviter; each of
// the inviter's own ancestors shifts down one level, truncated at
// MaxChainDepth. The chain is frozen at registration and never
// recomputed.
func BuildChain(inviterUID string, inviterChain map[int]string) map[int]string {
	chain := make(map[int]string, economy.MaxChainDepth)
	if inviterUID == "" {
		return chain
	}
	chain[1] = inviterUID
	for level := 1; level < economy.MaxChainDepth; level++ {
		ancestor, ok := inviterChain[level]
		if !ok || ancestor == "" {
			break
		}
		chain[level+1] = ancestor
	}
	return chain
}
