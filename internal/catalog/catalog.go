package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/types"
)

var ErrInvalidItem = errors.New("invalid catalog item")

// Catalog is the immutable in-memory food catalog shared by all requests.
// Nothing hands out a pointer into its backing slice, so concurrent readers
// need no locking.
type Catalog struct {
	items  []models.FoodItem
	byName map[string]int
}

// New validates items and builds a catalog from a private copy of them.
// An empty catalog is allowed; the model builder rejects it per request.
func New(items []models.FoodItem) (*Catalog, error) {
	c := &Catalog{
		items:  make([]models.FoodItem, len(items)),
		byName: make(map[string]int, len(items)),
	}
	copy(c.items, items)

	for i := range c.items {
		item := &c.items[i]
		item.Name = strings.TrimSpace(item.Name)
		if err := validateItem(*item); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if _, dup := c.byName[item.Name]; dup {
			return nil, fmt.Errorf("row %d: %w: duplicate name %q", i+1, ErrInvalidItem, item.Name)
		}
		c.byName[item.Name] = i
	}
	return c, nil
}

func validateItem(item models.FoodItem) error {
	if item.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidItem)
	}
	if _, err := types.ParseCategory(string(item.Category)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidItem, item.Name, err)
	}
	if item.SpiceLevel != "" {
		if _, err := types.ParseSpiceLevel(string(item.SpiceLevel)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidItem, item.Name, err)
		}
	}
	nutrients := map[string]float64{
		"calories": item.Calories,
		"protein":  item.Protein,
		"fat":      item.Fat,
		"carbs":    item.Carbs,
		"sodium":   item.Sodium,
		"sugar":    item.Sugar,
		"fiber":    item.Fiber,
	}
	for name, v := range nutrients {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s: %s must be a non-negative number, got %v", ErrInvalidItem, item.Name, name, v)
		}
	}
	return nil
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Item returns the item at index i by value.
func (c *Catalog) Item(i int) models.FoodItem {
	return c.items[i]
}

// Lookup resolves an exact food name to its index.
func (c *Catalog) Lookup(name string) (int, bool) {
	i, ok := c.byName[name]
	return i, ok
}

// Items returns a copy of all items in catalog order.
func (c *Catalog) Items() []models.FoodItem {
	out := make([]models.FoodItem, len(c.items))
	copy(out, c.items)
	return out
}

// Names returns every food name in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.items))
	for i, item := range c.items {
		names[i] = item.Name
	}
	return names
}

// ByCategory returns copies of the items in the given category.
func (c *Catalog) ByCategory(cat types.Category) []models.FoodItem {
	var out []models.FoodItem
	for _, item := range c.items {
		if item.Category == cat {
			out = append(out, item)
		}
	}
	return out
}
