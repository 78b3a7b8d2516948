package shop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_FirstItemPerBand(t *testing.T) {
	curve := DefaultPriceCurve()

	// t=0 for the first index, so price = economy * base.
	assert.Equal(t, 36, curve.Price(0, 30, RarityCommon))
	assert.Equal(t, 180, curve.Price(0, 30, RarityEpic))
	assert.Equal(t, 600, curve.Price(0, 30, RarityRare))
	assert.Equal(t, 2400, curve.Price(0, 30, RarityLegendary))
}

func TestPrice_GrowsWithIndex(t *testing.T) {
	curve := DefaultPriceCurve()

	prev := 0
	for i := 0; i < 30; i++ {
		p := curve.Price(i, 30, RarityRare)
		assert.GreaterOrEqual(t, p, prev, "index %d", i)
		prev = p
	}
}

func TestPrice_SingleItemBand(t *testing.T) {
	curve := DefaultPriceCurve()

	// total <= 1 pins t to zero.
	assert.Equal(t, curve.Price(0, 30, RarityCommon), curve.Price(0, 1, RarityCommon))
}

func TestPrice_NeverBelowOne(t *testing.T) {
	curve := DefaultPriceCurve()
	curve.BaseByRarity = map[Rarity]float64{RarityCommon: 0}

	assert.Equal(t, 1, curve.Price(0, 30, RarityCommon))
}

func TestLevelRequired_SpansBand(t *testing.T) {
	curve := DefaultPriceCurve()

	assert.Equal(t, 1, curve.LevelRequired(0, 30))
	assert.Equal(t, curve.MaxLevel, curve.LevelRequired(29, 30))
	assert.Equal(t, 1, curve.LevelRequired(0, 1))
}

func TestCatalog_DeterministicAndShaped(t *testing.T) {
	curve := DefaultPriceCurve()

	first := Catalog("theme", curve)
	second := Catalog("theme", curve)

	require.Len(t, first, 30)
	assert.Equal(t, first, second)

	counts := map[Rarity]int{}
	for _, item := range first {
		counts[item.Rarity]++
		assert.Positive(t, item.Price)
		assert.GreaterOrEqual(t, item.LevelRequired, 1)
	}
	assert.Equal(t, 12, counts[RarityCommon])
	assert.Equal(t, 9, counts[RarityEpic])
	assert.Equal(t, 6, counts[RarityRare])
	assert.Equal(t, 3, counts[RarityLegendary])
}
