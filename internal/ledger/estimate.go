package ledger

import "math/big"

// EstimatePayout previews the payout a hypothetical purchase of amount on one
// side would return if no further purchases followed: the pool after the bet,
// scaled by the bettor's fraction of the winning side. It is a read-only
// estimate for display, never a settlement amount; only ResolveMarket's
// arithmetic is authoritative.
//
// Arithmetic is integer with truncating division and big-int intermediates,
// the same numeric mode as settlement: EstimatePayout(75, 25, 5) == 6. An
// empty market returns even odds, 2*amount.
func EstimatePayout(sideTotal, otherSideTotal, amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	if sideTotal == 0 && otherSideTotal == 0 {
		return amount * 2
	}
	totalAfterBet := new(big.Int).Add(
		big.NewInt(sideTotal+otherSideTotal),
		big.NewInt(amount),
	)
	payout := totalAfterBet.Mul(totalAfterBet, big.NewInt(amount))
	payout.Quo(payout, big.NewInt(sideTotal+amount))
	return payout.Int64()
}
