package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/types"
)

type column int

const (
	colName column = iota
	colCategory
	colCalories
	colProtein
	colFat
	colCarbs
	colSodium
	colSugar
	colFiber
	colSpice
)

// headerAliases maps accepted header spellings to columns. The Korean
// headers are those of the original food dataset.
var headerAliases = map[string]column{
	"name":        colName,
	"food":        colName,
	"음식명":         colName,
	"category":    colCategory,
	"종류":          colCategory,
	"kcal":        colCalories,
	"calories":    colCalories,
	"칼로리":         colCalories,
	"protein":     colProtein,
	"protein_g":   colProtein,
	"단백질":         colProtein,
	"fat":         colFat,
	"fat_g":       colFat,
	"지방":          colFat,
	"carbs":       colCarbs,
	"carb_g":      colCarbs,
	"탄수화물":        colCarbs,
	"sodium":      colSodium,
	"sodium_mg":   colSodium,
	"나트륨":         colSodium,
	"sugar":       colSugar,
	"sugar_g":     colSugar,
	"당":           colSugar,
	"fiber":       colFiber,
	"fiber_g":     colFiber,
	"식이섬유":        colFiber,
	"spice_level": colSpice,
	"맵기":          colSpice,
}

var requiredColumns = []column{colName, colCategory, colCalories, colProtein, colFat, colCarbs, colSodium, colSugar}

// koreanCategories maps the dataset's Korean category labels to categories.
var koreanCategories = map[string]types.Category{
	"국/찌개/스프": types.CategorySoup,
	"밥류":      types.CategoryRice,
	"육류":      types.CategoryMeat,
	"면류":      types.CategoryNoodle,
	"샐러드":     types.CategorySalad,
	"과일/채소":   types.CategoryFruitVeg,
	"해산물":     types.CategorySeafood,
	"반찬/발효":   types.CategorySideFerment,
	"빵/디저트":   types.CategoryBreadDessert,
	"튀김/간식":   types.CategoryFriedSnack,
	"초밥/롤":    types.CategorySushiRoll,
	"기타":      types.CategoryEtc,
}

var ErrMissingColumn = errors.New("missing required column")

// LoadCSVFile reads a catalog from a CSV file on disk.
func LoadCSVFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads a catalog from CSV data with a header row.
func LoadCSV(r io.Reader) (*Catalog, error) {
	items, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return New(items)
}

// ReadCSV parses CSV rows into food items without building a catalog.
func ReadCSV(r io.Reader) ([]models.FoodItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	index := make(map[column]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if col, ok := headerAliases[key]; ok {
			index[col] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, columnName(col))
		}
	}

	var items []models.FoodItem
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		item, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseRecord(record []string, index map[column]int) (models.FoodItem, error) {
	field := func(col column) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	number := func(col column) (float64, error) {
		raw := field(col)
		if raw == "" {
			if col == colFiber {
				return 0, nil
			}
			return 0, fmt.Errorf("%w: empty %s", ErrInvalidItem, columnName(col))
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidItem, columnName(col), raw)
		}
		return v, nil
	}

	item := models.FoodItem{Name: field(colName)}

	category, err := parseCategory(field(colCategory))
	if err != nil {
		return item, fmt.Errorf("%w: %s: %v", ErrInvalidItem, item.Name, err)
	}
	item.Category = category

	if raw := field(colSpice); raw != "" {
		level, err := types.ParseSpiceLevel(strings.ToLower(raw))
		if err != nil {
			return item, fmt.Errorf("%w: %s: %v", ErrInvalidItem, item.Name, err)
		}
		item.SpiceLevel = level
	}

	targets := []struct {
		col column
		dst *float64
	}{
		{colCalories, &item.Calories},
		{colProtein, &item.Protein},
		{colFat, &item.Fat},
		{colCarbs, &item.Carbs},
		{colSodium, &item.Sodium},
		{colSugar, &item.Sugar},
		{colFiber, &item.Fiber},
	}
	for _, t := range targets {
		v, err := number(t.col)
		if err != nil {
			return item, err
		}
		*t.dst = v
	}
	return item, nil
}

func parseCategory(raw string) (types.Category, error) {
	if c, ok := koreanCategories[raw]; ok {
		return c, nil
	}
	return types.ParseCategory(strings.ToLower(raw))
}

func columnName(col column) string {
	switch col {
	case colName:
		return "name"
	case colCategory:
		return "category"
	case colCalories:
		return "kcal"
	case colProtein:
		return "protein"
	case colFat:
		return "fat"
	case colCarbs:
		return "carbs"
	case colSodium:
		return "sodium"
	case colSugar:
		return "sugar"
	case colFiber:
		return "fiber"
	case colSpice:
		return "spice_level"
	}
	return "unknown"
}
