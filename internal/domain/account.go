package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAccount validates a participant identity and returns its EIP-55
// checksummed form. Accounts are Ethereum addresses; every identity entering
// the ledger passes through here so positions and balances key consistently
// regardless of input casing.
func NormalizeAccount(account string) (string, error) {
	if !common.IsHexAddress(account) {
		return "", ErrInvalidAccount
	}
	return common.HexToAddress(account).Hex(), nil
}
