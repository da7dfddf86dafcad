package domain

import "time"

// Position is a participant's per-market share balance. Positions only grow:
// purchases are irreversible and there is no sell-back path, so both counters
// are monotonically non-decreasing until the market resolves.
type Position struct {
	MarketID  uint64    `json:"market_id"`
	Account   string    `json:"account"`
	YesShares int64     `json:"yes_shares"`
	NoShares  int64     `json:"no_shares"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SharesOn returns the participant's share count for one side.
func (p Position) SharesOn(side Side) int64 {
	if side == SideYes {
		return p.YesShares
	}
	return p.NoShares
}

// Empty reports whether the position holds no shares on either side.
func (p Position) Empty() bool {
	return p.YesShares == 0 && p.NoShares == 0
}
