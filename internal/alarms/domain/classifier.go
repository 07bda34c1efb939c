package alarms

import (
	"fmt"
	"sort"
)

// NormalThreshold is the highest status code of normal operation.
const NormalThreshold = 100

// Uncategorized is the catch-all bucket for alarm codes outside every category.
const Uncategorized = "Uncategorized"

// DefaultUncategorizedColor is the display color of the catch-all bucket.
const DefaultUncategorizedColor = "#9E9E9E"

// IsAlarm reports whether a status code is an alarm state.
func IsAlarm(status int64) bool {
	return status > NormalThreshold
}

// CodeRange is an inclusive range of status codes.
type CodeRange struct {
	From int64 `yaml:"from" json:"from"`
	To   int64 `yaml:"to" json:"to"`
}

// Category groups status codes for display.
type Category struct {
	Name   string      `yaml:"name" json:"name"`
	Color  string      `yaml:"color" json:"color"`
	Order  int         `yaml:"order" json:"order"`
	Codes  []int64     `yaml:"codes" json:"codes,omitempty"`
	Ranges []CodeRange `yaml:"ranges" json:"ranges,omitempty"`
}

// CategoryTable resolves status codes to categories. It is immutable.
type CategoryTable struct {
	categories []Category
	codes      map[int64]int
	ranges     []indexedRange
}

type indexedRange struct {
	CodeRange
	category int
}

// NewCategoryTable validates categories and builds a lookup table.
// Categories must have unique names and must not share any code.
func NewCategoryTable(categories []Category) (*CategoryTable, error) {
	table := &CategoryTable{codes: make(map[int64]int)}
	names := make(map[string]struct{}, len(categories))

	sorted := append([]Category(nil), categories...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	for i, cat := range sorted {
		if cat.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidCategory)
		}
		if cat.Name == Uncategorized {
			return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidCategory, Uncategorized)
		}
		if _, ok := names[cat.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidCategory, cat.Name)
		}
		names[cat.Name] = struct{}{}

		for _, r := range cat.Ranges {
			if r.To < r.From {
				return nil, fmt.Errorf("%w: %s range %d-%d", ErrInvalidCategory, cat.Name, r.From, r.To)
			}
			for _, other := range table.ranges {
				if other.category == i {
					continue
				}
				if r.From <= other.To && other.From <= r.To {
					return nil, fmt.Errorf("%w: %s and %s share codes %d-%d", ErrOverlappingCategories,
						cat.Name, sorted[other.category].Name, max(r.From, other.From), min(r.To, other.To))
				}
			}
			for code, owner := range table.codes {
				if code >= r.From && code <= r.To {
					return nil, fmt.Errorf("%w: %s and %s share code %d", ErrOverlappingCategories, cat.Name, sorted[owner].Name, code)
				}
			}
			table.ranges = append(table.ranges, indexedRange{CodeRange: r, category: i})
		}
		for _, code := range cat.Codes {
			if owner, ok := table.codes[code]; ok {
				if owner == i {
					continue
				}
				return nil, fmt.Errorf("%w: %s and %s share code %d", ErrOverlappingCategories, cat.Name, sorted[owner].Name, code)
			}
			if owner, ok := table.rangeOwner(code); ok && owner != i {
				return nil, fmt.Errorf("%w: %s and %s share code %d", ErrOverlappingCategories, cat.Name, sorted[owner].Name, code)
			}
			table.codes[code] = i
		}
		table.categories = append(table.categories, cat)
	}
	return table, nil
}

// CategoryOf returns the category of a status code. Codes outside every
// category return ("", false); callers group them under Uncategorized.
func (t *CategoryTable) CategoryOf(status int64) (string, bool) {
	if t == nil {
		return "", false
	}
	if i, ok := t.codes[status]; ok {
		return t.categories[i].Name, true
	}
	if i, ok := t.rangeOwner(status); ok {
		return t.categories[i].Name, true
	}
	return "", false
}

// Bucket returns the display bucket for a code, Uncategorized when no category matches.
func (t *CategoryTable) Bucket(status int64) string {
	if name, ok := t.CategoryOf(status); ok {
		return name
	}
	return Uncategorized
}

// Color returns the display color of a bucket.
func (t *CategoryTable) Color(bucket string) string {
	if t != nil {
		for _, cat := range t.categories {
			if cat.Name == bucket {
				return cat.Color
			}
		}
	}
	return DefaultUncategorizedColor
}

// Buckets returns category names in display order followed by Uncategorized.
func (t *CategoryTable) Buckets() []string {
	var out []string
	if t != nil {
		out = make([]string, 0, len(t.categories)+1)
		for _, cat := range t.categories {
			out = append(out, cat.Name)
		}
	}
	return append(out, Uncategorized)
}

// Categories returns a copy of the categories in display order.
func (t *CategoryTable) Categories() []Category {
	if t == nil {
		return nil
	}
	return append([]Category(nil), t.categories...)
}

func (t *CategoryTable) rangeOwner(code int64) (int, bool) {
	for _, r := range t.ranges {
		if code >= r.From && code <= r.To {
			return r.category, true
		}
	}
	return 0, false
}
