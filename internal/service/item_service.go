package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/store"
	"github.com/vbonduro/lockerinv/internal/validation"
)

const (
	msgPickCategory = "Silakan pilih kategori atau tekan Enter untuk membuat kategori baru"
	msgPickLocker   = "Silakan pilih loker"
)

// ItemInput is the payload for creating or updating items. Quantity defaults
// to 1 when nil. NewCategoryName is used when CategoryID is zero.
type ItemInput struct {
	Name            string `json:"name"`
	Quantity        *int   `json:"quantity"`
	Description     string `json:"description"`
	CategoryID      int64  `json:"categoryId"`
	NewCategoryName string `json:"newCategoryName"`
	LockerID        int64  `json:"lockerId"`
}

type ItemService struct {
	stores *store.Stores
	tx     transactor
	logger *slog.Logger
}

func NewItemService(stores *store.Stores, tx transactor, logger *slog.Logger) *ItemService {
	return &ItemService{stores: stores, tx: tx, logger: logger}
}

// SplitNames turns "Laptop, Mouse, Keyboard" into trimmed, non-empty names.
func SplitNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// validateItem checks everything except the names, which differ between
// create (comma list) and update (single name).
func validateItem(in *ItemInput, v *validation.Validator) int {
	in.Description = strings.TrimSpace(in.Description)
	in.NewCategoryName = strings.TrimSpace(in.NewCategoryName)

	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	v.NonNegative("quantity", qty).
		Check(qty <= maxQuantity, "quantity", fmt.Sprintf("Jumlah maksimal %d", maxQuantity)).
		MaxLength("description", in.Description, maxDescriptionLength).
		Check(in.CategoryID != 0 || in.NewCategoryName != "", "categoryId", msgPickCategory).
		Check(in.LockerID != 0, "lockerId", msgPickLocker)
	if in.CategoryID == 0 && in.NewCategoryName != "" {
		v.MaxLength("newCategoryName", in.NewCategoryName, maxNameLength)
	}
	return qty
}

// resolveRefs checks the locker and category belong to the user, creating the
// category from NewCategoryName when needed.
func resolveRefs(ctx context.Context, st *store.Stores, userID int64, in ItemInput) (categoryID int64, err error) {
	locker, err := st.Lockers.GetByID(ctx, userID, in.LockerID)
	if err != nil {
		return 0, err
	}
	if locker == nil {
		return 0, validation.New("lockerId", "Loker tidak ditemukan")
	}

	if in.CategoryID != 0 {
		c, err := st.Categories.GetByID(ctx, userID, in.CategoryID)
		if err != nil {
			return 0, err
		}
		if c == nil {
			return 0, validation.New("categoryId", "Kategori tidak ditemukan")
		}
		return c.ID, nil
	}

	c, _, err := ensureCategory(ctx, st, userID, in.NewCategoryName)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (s *ItemService) ListItems(ctx context.Context, userID int64, filter domain.ItemFilter) ([]*domain.Item, error) {
	return s.stores.Items.List(ctx, userID, filter)
}

func (s *ItemService) GetItem(ctx context.Context, userID, itemID int64) (*domain.Item, error) {
	item, err := s.stores.Items.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	return item, nil
}

// CreateItems creates one item per comma-separated name, all sharing the
// remaining fields.
func (s *ItemService) CreateItems(ctx context.Context, userID int64, in ItemInput) ([]*domain.Item, error) {
	names := SplitNames(in.Name)
	v := validation.NewValidator().Check(len(names) > 0, "name", "Nama barang wajib diisi")
	for _, name := range names {
		v.MaxLength("name", name, maxItemNameLength)
	}
	qty := validateItem(&in, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	var items []*domain.Item
	err := s.tx.WithinTx(ctx, func(st *store.Stores) error {
		categoryID, err := resolveRefs(ctx, st, userID, in)
		if err != nil {
			return err
		}
		for _, name := range names {
			item, err := st.Items.Create(ctx, &domain.Item{
				UserID:      userID,
				Name:        name,
				Quantity:    qty,
				Description: in.Description,
				CategoryID:  categoryID,
				LockerID:    in.LockerID,
			})
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("items created", "user_id", userID, "count", len(items))
	return items, nil
}

func (s *ItemService) UpdateItem(ctx context.Context, userID, itemID int64, in ItemInput) (*domain.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	v := validation.NewValidator().
		Required("name", in.Name, "Nama barang wajib diisi").
		MaxLength("name", in.Name, maxItemNameLength)
	qty := validateItem(&in, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	var updated *domain.Item
	err := s.tx.WithinTx(ctx, func(st *store.Stores) error {
		categoryID, err := resolveRefs(ctx, st, userID, in)
		if err != nil {
			return err
		}
		err = st.Items.Update(ctx, &domain.Item{
			ID:          itemID,
			UserID:      userID,
			Name:        in.Name,
			Quantity:    qty,
			Description: in.Description,
			CategoryID:  categoryID,
			LockerID:    in.LockerID,
		})
		if err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		updated, err = st.Items.GetByID(ctx, userID, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ItemService) DeleteItem(ctx context.Context, userID, itemID int64) error {
	return s.stores.Items.Delete(ctx, userID, itemID)
}
