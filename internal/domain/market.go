package domain

import "time"

// Side is one of the two outcomes a participant can back.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Valid reports whether the side is one of the two recognised values.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Market is a single yes/no question open for share purchases until EndTime
// and resolved exactly once afterwards. Share and escrow amounts are int64
// micro-units (1e6 micro = 1 unit), matching the 6-decimal funding token.
// One micro-unit of funding buys one micro-unit of shares, so TotalEscrow
// always equals YesShares + NoShares.
type Market struct {
	ID          uint64     `json:"id"`
	Creator     string     `json:"creator"`
	Question    string     `json:"question"`
	EndTime     time.Time  `json:"end_time"`
	Resolved    bool       `json:"resolved"`
	Outcome     bool       `json:"outcome"`
	YesShares   int64      `json:"yes_shares"`
	NoShares    int64      `json:"no_shares"`
	TotalEscrow int64      `json:"total_escrow"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Resolver    string     `json:"resolver,omitempty"`
}

// Open reports whether the market still accepts purchases at the given time.
func (m Market) Open(now time.Time) bool {
	return !m.Resolved && now.Before(m.EndTime)
}

// SharesOn returns the aggregate share total for one side.
func (m Market) SharesOn(side Side) int64 {
	if side == SideYes {
		return m.YesShares
	}
	return m.NoShares
}
