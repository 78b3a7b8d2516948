package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyseal/study-hub/internal/domain/progression"
	"github.com/studyseal/study-hub/internal/domain/shared"
	"github.com/studyseal/study-hub/internal/domain/shop"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SHOP CATALOG QUERY
// The catalog itself is deterministic flavor content; the query only adds
// the user's view of it: what their level unlocks and their coins afford.
// ══════════════════════════════════════════════════════════════════════════════

// GetShopCatalogQuery requests the catalog of one cosmetic type for a user.
type GetShopCatalogQuery struct {
	UserID string

	// ItemType selects the cosmetic type ("theme", "seal").
	ItemType string
}

// Validate validates the query.
func (q GetShopCatalogQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_shop_catalog: user_id is required")
	}
	if q.ItemType == "" {
		return errors.New("get_shop_catalog: item_type is required")
	}
	return nil
}

// CatalogEntry is one item with the user's purchasing view attached.
type CatalogEntry struct {
	shop.Item

	Unlocked   bool `json:"unlocked"`
	Affordable bool `json:"affordable"`
}

// GetShopCatalogResult carries the annotated catalog.
type GetShopCatalogResult struct {
	ItemType string
	Items    []CatalogEntry
	Coins    shared.Coins
	Level    shared.Level
}

// GetShopCatalogHandler handles the query.
type GetShopCatalogHandler struct {
	progressRepo progression.Repository
	curve        shop.PriceCurve
}

// NewGetShopCatalogHandler creates the handler.
func NewGetShopCatalogHandler(progressRepo progression.Repository, curve shop.PriceCurve) *GetShopCatalogHandler {
	return &GetShopCatalogHandler{progressRepo: progressRepo, curve: curve}
}

// Handle executes the query.
func (h *GetShopCatalogHandler) Handle(ctx context.Context, q GetShopCatalogQuery) (*GetShopCatalogResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_shop_catalog: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, err
	}

	progress, err := h.progressRepo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_shop_catalog: failed to load progress: %w", err)
	}

	items := shop.Catalog(q.ItemType, h.curve)
	entries := make([]CatalogEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, CatalogEntry{
			Item:       item,
			Unlocked:   progress.Level.Int() >= item.LevelRequired,
			Affordable: progress.Coins.Int() >= item.Price,
		})
	}

	return &GetShopCatalogResult{
		ItemType: q.ItemType,
		Items:    entries,
		Coins:    progress.Coins,
		Level:    progress.Level,
	}, nil
}
