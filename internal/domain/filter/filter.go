// Package filter selects recipes by a set of criteria. It never mutates its
// input and keeps the input order.
package filter

import (
	"regexp"
	"strconv"
	"strings"

	"recipe_hub/internal/domain/model"
)

// Criteria are combined with AND. Zero values impose no restriction.
type Criteria struct {
	FavoritesOnly bool
	VeganOnly     bool
	// Categories restricts to the listed categories; empty means all.
	Categories []model.Category
	// MaxTimeMinutes and MaxCalories are ignored when nil.
	MaxTimeMinutes *int
	MaxCalories    *int
	SearchText     string
	// SelectedID narrows the result to a single recipe.
	SelectedID string
}

// Thresholds offered by the recipe filter form.
var (
	TimePresets    = []int{15, 30, 45, 60}
	CaloriePresets = []int{200, 300, 400, 500}
)

type Result struct {
	Recipes []model.Recipe `json:"recipes"`
	// Count always equals len(Recipes).
	Count int `json:"count"`
}

// Apply returns the recipes matching every criterion.
func Apply(recipes []model.Recipe, c Criteria) Result {
	p := c.compile()
	out := make([]model.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if p.match(&r) {
			out = append(out, r)
		}
	}
	return Result{Recipes: out, Count: len(out)}
}

// Match reports whether a single recipe satisfies c.
func Match(r model.Recipe, c Criteria) bool {
	return c.compile().match(&r)
}

type predicate struct {
	c          Criteria
	categories map[model.Category]struct{}
	search     string
}

func (c Criteria) compile() predicate {
	p := predicate{c: c, search: strings.ToLower(c.SearchText)}
	if len(c.Categories) > 0 {
		p.categories = make(map[model.Category]struct{}, len(c.Categories))
		for _, cat := range c.Categories {
			p.categories[cat] = struct{}{}
		}
	}
	return p
}

func (p predicate) match(r *model.Recipe) bool {
	if p.c.SelectedID != "" && r.ID != p.c.SelectedID {
		return false
	}
	if p.c.FavoritesOnly && !r.Favorite {
		return false
	}
	if p.c.VeganOnly && r.Category != model.CategoryVegan {
		return false
	}
	if p.categories != nil {
		if _, ok := p.categories[categoryOf(r)]; !ok {
			return false
		}
	}
	if !p.matchesSearch(r) {
		return false
	}
	if !withinLimit(r.Time, p.c.MaxTimeMinutes) {
		return false
	}
	return withinLimit(r.Calories, p.c.MaxCalories)
}

func (p predicate) matchesSearch(r *model.Recipe) bool {
	if p.search == "" {
		return true
	}
	if containsFold(r.Title, p.search) ||
		containsFold(r.Description, p.search) ||
		containsFold(string(categoryOf(r)), p.search) {
		return true
	}
	for _, ing := range r.Ingredients {
		if containsFold(ing, p.search) {
			return true
		}
	}
	return false
}

func containsFold(s, lowerSubstr string) bool {
	return strings.Contains(strings.ToLower(s), lowerSubstr)
}

func categoryOf(r *model.Recipe) model.Category {
	if r.Category == "" {
		return model.DefaultCategory
	}
	return r.Category
}

// withinLimit fails open: a value without digits is never excluded.
func withinLimit(value string, limit *int) bool {
	if limit == nil {
		return true
	}
	n, ok := LeadingNumber(value)
	if !ok {
		return true
	}
	return n <= *limit
}

var digitRun = regexp.MustCompile(`[0-9]+`)

// LeadingNumber extracts the first run of ASCII digits anywhere in s, so
// "2 portions, 20 min" yields 2. ok is false when s holds no digits or the
// run does not fit in an int.
func LeadingNumber(s string) (n int, ok bool) {
	run := digitRun.FindString(s)
	if run == "" {
		return 0, false
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return 0, false
	}
	return n, true
}
