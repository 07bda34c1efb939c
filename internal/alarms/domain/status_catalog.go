package alarms

import (
	"fmt"
	"sort"
)

// UnknownStatus prefixes the description of codes missing from a catalog.
const UnknownStatus = "Unknown status"

// StatusCatalog maps status codes to operator facing descriptions.
type StatusCatalog struct {
	entries map[int64]string
}

// NewStatusCatalog copies descriptions into a catalog.
func NewStatusCatalog(descriptions map[int64]string) *StatusCatalog {
	entries := make(map[int64]string, len(descriptions))
	for code, text := range descriptions {
		if text != "" {
			entries[code] = text
		}
	}
	return &StatusCatalog{entries: entries}
}

// Describe returns the description of a code, falling back to "Unknown status <code>".
func (c *StatusCatalog) Describe(code int64) string {
	if c != nil {
		if text, ok := c.entries[code]; ok {
			return text
		}
	}
	return fmt.Sprintf("%s %d", UnknownStatus, code)
}

// Known reports whether the catalog describes code.
func (c *StatusCatalog) Known(code int64) bool {
	if c == nil {
		return false
	}
	_, ok := c.entries[code]
	return ok
}

// Codes returns catalogued codes in ascending order.
func (c *StatusCatalog) Codes() []int64 {
	if c == nil {
		return nil
	}
	codes := make([]int64, 0, len(c.entries))
	for code := range c.entries {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
