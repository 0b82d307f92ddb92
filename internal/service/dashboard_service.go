package service

import (
	"context"
	"strings"

	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/store"
)

const recentItemsLimit = 5

type Stats struct {
	Totals      store.Totals      `json:"totals"`
	ByCategory  []store.Breakdown `json:"byCategory"`
	ByLocker    []store.Breakdown `json:"byLocker"`
	RecentItems []*domain.Item    `json:"recentItems"`
}

type SearchResults struct {
	Items      []*domain.Item     `json:"items"`
	Lockers    []*domain.Locker   `json:"lockers"`
	Categories []*domain.Category `json:"categories"`
}

type DashboardService struct {
	stores *store.Stores
}

func NewDashboardService(stores *store.Stores) *DashboardService {
	return &DashboardService{stores: stores}
}

func (s *DashboardService) Stats(ctx context.Context, userID int64) (*Stats, error) {
	totals, err := s.stores.Stats.Totals(ctx, userID)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.stores.Stats.ByCategory(ctx, userID)
	if err != nil {
		return nil, err
	}
	byLocker, err := s.stores.Stats.ByLocker(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.stores.Items.Recent(ctx, userID, recentItemsLimit)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Totals:      totals,
		ByCategory:  nonNil(byCategory),
		ByLocker:    nonNil(byLocker),
		RecentItems: nonNil(recent),
	}, nil
}

// Search matches items, lockers and categories. An empty query returns empty
// lists rather than everything.
func (s *DashboardService) Search(ctx context.Context, userID int64, query string) (*SearchResults, error) {
	res := &SearchResults{
		Items:      []*domain.Item{},
		Lockers:    []*domain.Locker{},
		Categories: []*domain.Category{},
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return res, nil
	}

	items, err := s.stores.Items.Search(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	lockers, err := s.stores.Lockers.Search(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	categories, err := s.stores.Categories.Search(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	res.Items = nonNil(items)
	res.Lockers = nonNil(lockers)
	res.Categories = nonNil(categories)
	return res, nil
}

// nonNil keeps JSON output as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
