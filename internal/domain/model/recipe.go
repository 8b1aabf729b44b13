package model

import (
	"slices"
	"time"
)

type Category string

const (
	CategoryVegan      Category = "vegan"
	CategoryVegetarian Category = "vegetarian"
	CategoryWithMeat   Category = "with-meat"

	DefaultCategory = CategoryVegetarian
	DefaultImage    = "🍽️"

	// Recipe IDs are the creation time down to the microsecond.
	RecipeIDLayout    = "20060102150405.000000"
	CreatedDateLayout = "2006-01-02 15:04"
)

// Categories lists the valid categories in display order.
var Categories = []Category{CategoryVegan, CategoryVegetarian, CategoryWithMeat}

// ImageOptions are the icons offered when creating a recipe.
var ImageOptions = []string{
	"🍽️", "🍛", "🍝", "🥑", "🥧", "🍲", "🍗", "🧀", "🌯", "🥔", "🥬", "🍳",
	"🥗", "🍅", "🥞", "🌮", "🍡", "🍚", "🥣", "🐟", "🥩", "🌶️", "🍆",
}

func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

type Recipe struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	Time        string   `json:"time"`
	Category    Category `json:"category"`
	Calories    string   `json:"calories"`
	Favorite    bool     `json:"favorite"`
	Image       string   `json:"image"`
	CreatedBy   string   `json:"created_by,omitempty"`
	CreatedDate string   `json:"created_date,omitempty"`
}

// Backfill fills absent optional fields with their canonical defaults.
func (r *Recipe) Backfill() {
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	if r.Image == "" {
		r.Image = DefaultImage
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Steps == nil {
		r.Steps = []string{}
	}
}

// NewRecipeID formats t as a recipe identifier.
func NewRecipeID(t time.Time) string {
	b := t.AppendFormat(make([]byte, 0, len(RecipeIDLayout)), RecipeIDLayout)
	// drop the separator so the id is a plain digit string
	return string(slices.Delete(b, 14, 15))
}
