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

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryService struct {
	stores *store.Stores
	tx     transactor
	logger *slog.Logger
}

func NewCategoryService(stores *store.Stores, tx transactor, logger *slog.Logger) *CategoryService {
	return &CategoryService{stores: stores, tx: tx, logger: logger}
}

func validateCategory(in *CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	return validation.NewValidator().
		Required("name", in.Name, "Nama kategori wajib diisi").
		MaxLength("name", in.Name, maxNameLength).
		MaxLength("description", in.Description, maxDescriptionLength).
		Err()
}

func (s *CategoryService) ListCategories(ctx context.Context, userID int64) ([]*domain.Category, error) {
	return s.stores.Categories.List(ctx, userID)
}

func (s *CategoryService) GetCategory(ctx context.Context, userID, categoryID int64) (*domain.Category, error) {
	c, err := s.stores.Categories.GetByID(ctx, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("category %d: %w", categoryID, domain.ErrNotFound)
	}
	return c, nil
}

func (s *CategoryService) GetCategoryWithItems(ctx context.Context, userID, categoryID int64) (*domain.Category, []*domain.Item, error) {
	c, err := s.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.stores.Items.List(ctx, userID, domain.ItemFilter{CategoryID: categoryID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list items: %w", err)
	}
	return c, items, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, userID int64, in CategoryInput) (*domain.Category, error) {
	if err := validateCategory(&in); err != nil {
		return nil, err
	}
	return s.stores.Categories.Create(ctx, userID, in.Name, in.Description)
}

func (s *CategoryService) UpdateCategory(ctx context.Context, userID, categoryID int64, in CategoryInput) (*domain.Category, error) {
	if err := validateCategory(&in); err != nil {
		return nil, err
	}
	if err := s.stores.Categories.Update(ctx, userID, categoryID, in.Name, in.Description); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return s.GetCategory(ctx, userID, categoryID)
}

// DeleteCategory removes a category. Remaining items are moved or deleted per
// opts; without an action a non-empty category yields *domain.HasItemsError.
func (s *CategoryService) DeleteCategory(ctx context.Context, userID, categoryID int64, opts domain.DeleteOptions) error {
	err := s.tx.WithinTx(ctx, func(st *store.Stores) error {
		c, err := st.Categories.GetByID(ctx, userID, categoryID)
		if err != nil {
			return fmt.Errorf("failed to get category: %w", err)
		}
		if c == nil {
			return fmt.Errorf("category %d: %w", categoryID, domain.ErrNotFound)
		}

		if c.ItemCount > 0 {
			switch opts.Action {
			case domain.DeleteActionMove:
				if opts.TargetID == categoryID {
					return validation.New("targetId", "Kategori tujuan tidak boleh sama dengan kategori yang dihapus")
				}
				target, err := st.Categories.GetByID(ctx, userID, opts.TargetID)
				if err != nil {
					return fmt.Errorf("failed to get target category: %w", err)
				}
				if target == nil {
					return validation.New("targetId", "Kategori tujuan tidak ditemukan")
				}
				if err := st.Items.MoveCategory(ctx, userID, categoryID, target.ID); err != nil {
					return err
				}
			case domain.DeleteActionDelete:
				if err := st.Items.DeleteByCategory(ctx, userID, categoryID); err != nil {
					return err
				}
			default:
				return &domain.HasItemsError{Kind: "category", ItemCount: c.ItemCount, TotalQuantity: c.TotalQuantity}
			}
		}
		return st.Categories.Delete(ctx, userID, categoryID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("category deleted", "user_id", userID, "category_id", categoryID, "action", string(opts.Action))
	return nil
}
