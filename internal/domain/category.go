package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Category groups products. Categories form a forest through ParentID.
type Category struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Level       int        `json:"level"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CategoryTree indexes a flat set of categories by id and by parent. It holds
// no pointers between categories.
type CategoryTree struct {
	byID     map[uuid.UUID]Category
	children map[uuid.UUID][]uuid.UUID
	roots    []uuid.UUID
}

// NewCategoryTree builds the index. Categories whose parent is missing from
// the set are treated as roots.
func NewCategoryTree(categories []Category) *CategoryTree {
	t := &CategoryTree{
		byID:     make(map[uuid.UUID]Category, len(categories)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, c := range categories {
		t.byID[c.ID] = c
	}
	for _, c := range categories {
		if c.ParentID != nil {
			if _, ok := t.byID[*c.ParentID]; ok {
				t.children[*c.ParentID] = append(t.children[*c.ParentID], c.ID)
				continue
			}
		}
		t.roots = append(t.roots, c.ID)
	}
	return t
}

// Get returns the category with the given id.
func (t *CategoryTree) Get(id uuid.UUID) (Category, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Roots returns the ids of the top-level categories.
func (t *CategoryTree) Roots() []uuid.UUID {
	return slices.Clone(t.roots)
}

// Children returns the direct children of id.
func (t *CategoryTree) Children(id uuid.UUID) []uuid.UUID {
	return slices.Clone(t.children[id])
}

// HasChildren reports whether id has at least one child.
func (t *CategoryTree) HasChildren(id uuid.UUID) bool {
	return len(t.children[id]) > 0
}

// Path returns the categories from the root down to id, inclusive.
func (t *CategoryTree) Path(id uuid.UUID) []Category {
	var path []Category
	seen := make(map[uuid.UUID]bool)
	for cur, ok := t.byID[id]; ok && !seen[cur.ID]; {
		seen[cur.ID] = true
		path = append(path, cur)
		if cur.ParentID == nil {
			break
		}
		cur, ok = t.byID[*cur.ParentID]
	}
	slices.Reverse(path)
	return path
}

// Descendants returns every category below id, breadth first.
func (t *CategoryTree) Descendants(id uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	queue := slices.Clone(t.children[id])
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		out = append(out, next)
		queue = append(queue, t.children[next]...)
	}
	return out
}

// WouldCycle reports whether making parentID the parent of id would create a
// cycle.
func (t *CategoryTree) WouldCycle(id, parentID uuid.UUID) bool {
	if id == parentID {
		return true
	}
	return slices.Contains(t.Descendants(id), parentID)
}

// LevelUnder returns the level a child of parentID has. Root level is 0.
func (t *CategoryTree) LevelUnder(parentID *uuid.UUID) int {
	if parentID == nil {
		return 0
	}
	if p, ok := t.byID[*parentID]; ok {
		return p.Level + 1
	}
	return 0
}
