package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG - Static lookup of investment tiers
// =============================================================================

// Tier is a fixed (principal amount, daily rate) pair a user can enroll in.
type Tier struct {
	Label     string
	Amount    decimal.Decimal
	DailyRate decimal.Decimal
}

// DailyAccrual is the amount credited per day to a slot on this tier.
func (t Tier) DailyAccrual() decimal.Decimal {
	return t.Amount.Mul(t.DailyRate).Round(2)
}

// Catalog is the read-only tier table. Seeded once at construction and
// never mutated at runtime, so lookups need no locking.
type Catalog struct {
	tiers map[string]Tier
}

// NewCatalog builds a catalog from the given tiers. Labels must be unique
// and amounts/rates strictly positive.
func NewCatalog(tiers []Tier) (*Catalog, error) {
	m := make(map[string]Tier, len(tiers))
	for _, t := range tiers {
		if t.Label == "" {
			return nil, fmt.Errorf("catalog: tier with empty label")
		}
		if !t.Amount.IsPositive() || !t.DailyRate.IsPositive() {
			return nil, fmt.Errorf("catalog: tier %s must have positive amount and rate", t.Label)
		}
		if _, dup := m[t.Label]; dup {
			return nil, fmt.Errorf("catalog: duplicate tier %s", t.Label)
		}
		m[t.Label] = t
	}
	return &Catalog{tiers: m}, nil
}

// Get returns the tier for a label.
func (c *Catalog) Get(label string) (Tier, bool) {
	t, ok := c.tiers[label]
	return t, ok
}

// List returns all tiers ordered by principal amount.
func (c *Catalog) List() []Tier {
	out := make([]Tier, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Amount.LessThan(out[j].Amount) })
	return out
}

// DefaultTiers is the standard tier table.
func DefaultTiers() []Tier {
	return []Tier{
		{Label: "L1", Amount: decimal.NewFromInt(200), DailyRate: decimal.NewFromFloat(0.05)},
		{Label: "L2", Amount: decimal.NewFromInt(350), DailyRate: decimal.NewFromFloat(0.06)},
		{Label: "L3", Amount: decimal.NewFromInt(500), DailyRate: decimal.NewFromFloat(0.07)},
		{Label: "L4", Amount: decimal.NewFromInt(1000), DailyRate: decimal.NewFromFloat(0.08)},
		{Label: "L5", Amount: decimal.NewFromInt(2000), DailyRate: decimal.NewFromFloat(0.10)},
	}
}
