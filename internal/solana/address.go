package solana

import "strings"

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// SolMint is the native SOL mint address, the counter-asset of every swap.
const SolMint = "So11111111111111111111111111111111111111112"

// IsValidAddress performs a shape check on a Solana address: base58
// alphabet, 32 to 44 characters. It does not verify the address exists on
// chain.
func IsValidAddress(address string) bool {
	if len(address) < 32 || len(address) > 44 {
		return false
	}
	for _, r := range address {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}
