// internal/security/helper.go
package security

import "strings"

// pathToEnvKey maps "blockchain/wallet-private-key" to "BLOCKCHAIN_WALLET_PRIVATE_KEY"
func pathToEnvKey(path string) string {
	key := strings.ToUpper(path)
	key = strings.ReplaceAll(key, "/", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
