package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkwazi/invest-engine/engine"
)

func TestNewCatalog_RejectsBadTiers(t *testing.T) {
	cases := []struct {
		name  string
		tiers []engine.Tier
	}{
		{"empty label", []engine.Tier{{Label: "", Amount: dec("200"), DailyRate: dec("0.05")}}},
		{"zero amount", []engine.Tier{{Label: "L1", Amount: dec("0"), DailyRate: dec("0.05")}}},
		{"negative rate", []engine.Tier{{Label: "L1", Amount: dec("200"), DailyRate: dec("-0.05")}}},
		{"duplicate label", []engine.Tier{
			{Label: "L1", Amount: dec("200"), DailyRate: dec("0.05")},
			{Label: "L1", Amount: dec("350"), DailyRate: dec("0.06")},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.NewCatalog(tc.tiers)
			assert.Error(t, err)
		})
	}
}

func TestCatalog_ListOrderedByAmount(t *testing.T) {
	catalog, err := engine.NewCatalog([]engine.Tier{
		{Label: "big", Amount: dec("2000"), DailyRate: dec("0.10")},
		{Label: "small", Amount: dec("200"), DailyRate: dec("0.05")},
		{Label: "mid", Amount: dec("500"), DailyRate: dec("0.07")},
	})
	require.NoError(t, err)

	tiers := catalog.List()
	require.Len(t, tiers, 3)
	assert.Equal(t, "small", tiers[0].Label)
	assert.Equal(t, "mid", tiers[1].Label)
	assert.Equal(t, "big", tiers[2].Label)
}

func TestDefaultTiers_DailyAccruals(t *testing.T) {
	// The standard table: 200@5%, 350@6%, 500@7%, 1000@8%, 2000@10%.
	catalog, err := engine.NewCatalog(engine.DefaultTiers())
	require.NoError(t, err)

	expected := map[string]string{
		"L1": "10",
		"L2": "21",
		"L3": "35",
		"L4": "80",
		"L5": "200",
	}
	for label, want := range expected {
		tier, ok := catalog.Get(label)
		require.True(t, ok, label)
		assert.True(t, tier.DailyAccrual().Equal(dec(want)),
			"%s: want %s, got %s", label, want, tier.DailyAccrual())
	}

	_, ok := catalog.Get("L99")
	assert.False(t, ok)
}
