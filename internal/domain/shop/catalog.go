// Package shop generates the deterministic cosmetic catalog: prices and
// level gates as pure functions of an item's index and rarity band. There is
// no persisted mutable state here; the catalog is flavor content, recomputed
// identically on every call, in the same spirit as the quest pool builder.
package shop

import (
	"fmt"
	"math"
)

// Rarity bands, cheapest first.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityEpic      Rarity = "epic"
	RarityRare      Rarity = "rare"
	RarityLegendary Rarity = "legendary"
)

// PriceCurve prices items proportionally to a whole-economy budget: the
// coins a dedicated user earns over roughly 5000 hours. Within a band,
// price grows sublinearly with the item's index.
type PriceCurve struct {
	// EconomyCoins anchors the curve: total coins of the reference grind.
	EconomyCoins int

	// Gamma shapes in-band growth: price = economy * base * (1+t)^gamma
	// where t runs 0..1 across the band.
	Gamma float64

	// BaseByRarity is each band's share of the economy for its first item.
	BaseByRarity map[Rarity]float64

	// MaxLevel caps the level requirement of the last item in a band.
	MaxLevel int
}

// DefaultPriceCurve returns the production curve: a 60000-coin economy
// (5000 hours at 12 coins/hour) with gamma 0.65.
func DefaultPriceCurve() PriceCurve {
	return PriceCurve{
		EconomyCoins: 60000,
		Gamma:        0.65,
		BaseByRarity: map[Rarity]float64{
			RarityCommon:    0.0006,
			RarityEpic:      0.0030,
			RarityRare:      0.0100,
			RarityLegendary: 0.0400,
		},
		MaxLevel: 25,
	}
}

// Price returns the coin price of the item at index within a band of total
// items. Deterministic, always at least 1.
func (c PriceCurve) Price(index, total int, rarity Rarity) int {
	t := 0.0
	if total > 1 {
		t = float64(index) / float64(total-1)
	}
	base := c.BaseByRarity[rarity]
	price := int(math.Round(float64(c.EconomyCoins) * base * math.Pow(1.0+t, c.Gamma)))
	if price < 1 {
		price = 1
	}
	return price
}

// LevelRequired gates later items behind levels, spread linearly across the
// band and clamped to [1, MaxLevel].
func (c PriceCurve) LevelRequired(index, total int) int {
	if total <= 1 {
		return 1
	}
	t := float64(index) / float64(total-1)
	level := 1 + int(math.Round(t*float64(c.MaxLevel)))
	if level < 1 {
		level = 1
	}
	if level > c.MaxLevel {
		level = c.MaxLevel
	}
	return level
}

// Item is one catalog entry.
type Item struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ItemType      string `json:"item_type"`
	Rarity        Rarity `json:"rarity"`
	Price         int    `json:"price"`
	LevelRequired int    `json:"level_required"`
}

// BandLayout is how many items each rarity contributes to a 30-item type.
var BandLayout = []struct {
	Rarity Rarity
	Count  int
}{
	{RarityCommon, 12},
	{RarityEpic, 9},
	{RarityRare, 6},
	{RarityLegendary, 3},
}

// Catalog generates the full item list for one cosmetic type ("theme",
// "seal"). Deterministic: the same inputs always yield the same catalog.
func Catalog(itemType string, curve PriceCurve) []Item {
	total := 0
	for _, band := range BandLayout {
		total += band.Count
	}

	items := make([]Item, 0, total)
	index := 0
	for _, band := range BandLayout {
		for i := 0; i < band.Count; i++ {
			items = append(items, Item{
				ID:            fmt.Sprintf("%s_%d", itemType, index),
				Name:          fmt.Sprintf("%s #%d", itemType, index),
				ItemType:      itemType,
				Rarity:        band.Rarity,
				Price:         curve.Price(index, total, band.Rarity),
				LevelRequired: curve.LevelRequired(index, total),
			})
			index++
		}
	}
	return items
}
