package alarms

import "errors"

var (
	// ErrInvalidCategory indicates a malformed category definition.
	ErrInvalidCategory = errors.New("alarms: invalid category")
	// ErrOverlappingCategories indicates two categories claim the same status code.
	ErrOverlappingCategories = errors.New("alarms: overlapping categories")
)
