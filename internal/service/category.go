package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/InventoryGo/internal/domain"
	"github.com/utafrali/InventoryGo/internal/repository"
	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
)

// CategoryInput carries the writable fields of a category. A nil ParentID
// makes the category a root.
type CategoryInput struct {
	Code        string
	Name        string
	Description string
	ParentID    *uuid.UUID
}

// CategoryService maintains the category hierarchy. The hierarchy is loaded
// as a domain.CategoryTree for every structural check.
type CategoryService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	logger     *slog.Logger
	now        Clock
}

// NewCategoryService creates a category service.
func NewCategoryService(categories repository.CategoryRepository, products repository.ProductRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		categories: categories,
		products:   products,
		logger:     logger,
		now:        utcNow,
	}
}

// Tree loads the whole hierarchy.
func (s *CategoryService) Tree(ctx context.Context) (*domain.CategoryTree, error) {
	all, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return domain.NewCategoryTree(all), nil
}

// Create adds a category under an optional parent.
func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" || strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.InvalidInput("code and name are required")
	}
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		if _, ok := tree.Get(*in.ParentID); !ok {
			return nil, apperrors.NotFound("category", in.ParentID.String())
		}
	}

	now := s.now()
	c := &domain.Category{
		ID:          uuid.New(),
		Code:        code,
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
		Level:       tree.LevelUnder(in.ParentID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", c.ID.String()),
		slog.String("code", c.Code),
	)
	return c, nil
}

// Update renames or re-parents a category. Moving a category under itself or
// one of its descendants is rejected. Levels of the moved subtree follow.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, in CategoryInput) (*domain.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := tree.Get(id)
	if !ok {
		return nil, apperrors.NotFound("category", id.String())
	}
	if in.ParentID != nil {
		if _, ok := tree.Get(*in.ParentID); !ok {
			return nil, apperrors.NotFound("category", in.ParentID.String())
		}
		if tree.WouldCycle(id, *in.ParentID) {
			return nil, apperrors.InvalidInput("a category cannot be moved under itself or its descendants")
		}
	}

	now := s.now()
	c.Name = in.Name
	c.Description = in.Description
	c.ParentID = in.ParentID
	shift := tree.LevelUnder(in.ParentID) - c.Level
	c.Level += shift
	c.UpdatedAt = now
	if err := s.categories.Update(ctx, &c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	if shift != 0 {
		for _, childID := range tree.Descendants(id) {
			child, _ := tree.Get(childID)
			child.Level += shift
			child.UpdatedAt = now
			if err := s.categories.Update(ctx, &child); err != nil {
				return nil, fmt.Errorf("update category level: %w", err)
			}
		}
	}

	s.logger.InfoContext(ctx, "category updated", slog.String("category_id", c.ID.String()))
	return &c, nil
}

// Delete removes a category that has no children and no products.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	tree, err := s.Tree(ctx)
	if err != nil {
		return err
	}
	if _, ok := tree.Get(id); !ok {
		return apperrors.NotFound("category", id.String())
	}
	if tree.HasChildren(id) {
		return apperrors.Conflict("category has child categories")
	}
	n, err := s.products.CountByCategories(ctx, []uuid.UUID{id})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n > 0 {
		return apperrors.Conflict(fmt.Sprintf("category has %d products", n))
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id.String()))
	return nil
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// List returns every category ordered by code.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	out, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// Path returns the chain of categories from the root down to id.
func (s *CategoryService) Path(ctx context.Context, id uuid.UUID) ([]domain.Category, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.Get(id); !ok {
		return nil, apperrors.NotFound("category", id.String())
	}
	return tree.Path(id), nil
}

// Products returns the products of a category, including those of its
// descendants when deep is set.
func (s *CategoryService) Products(ctx context.Context, id uuid.UUID, deep bool) ([]domain.Product, error) {
	tree, err := s.Tree(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.Get(id); !ok {
		return nil, apperrors.NotFound("category", id.String())
	}
	ids := []uuid.UUID{id}
	if deep {
		ids = append(ids, tree.Descendants(id)...)
	}
	out, err := s.products.List(ctx, domain.ProductFilter{CategoryIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("list category products: %w", err)
	}
	return out, nil
}
