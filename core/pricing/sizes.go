package pricing

import (
	"sort"
	"strings"
)

var sizeAliases = map[string]string{
	"XXL":      "2XL",
	"XXXL":     "3XL",
	"XXXXL":    "4XL",
	"XXXXXL":   "5XL",
	"2X":       "2XL",
	"3X":       "3XL",
	"4X":       "4XL",
	"ONE SIZE": "OSFA",
	"OS":       "OSFA",
}

// Standard garment size ordering; unknown sizes sort after these, alphabetically.
var sizeOrder = map[string]int{
	"XS": 1, "S": 2, "M": 3, "L": 4, "XL": 5,
	"2XL": 6, "3XL": 7, "4XL": 8, "5XL": 9, "6XL": 10,
	"LT": 11, "XLT": 12, "2XLT": 13, "3XLT": 14, "4XLT": 15,
	"S/M": 16, "M/L": 17, "L/XL": 18, "OSFA": 19,
}

// NormalizeSize upper-cases a size label and maps common aliases
func NormalizeSize(size string) string {
	s := strings.ToUpper(strings.TrimSpace(size))
	if alias, ok := sizeAliases[s]; ok {
		return alias
	}
	return s
}

// SortSizes orders size labels the way a size run is printed
func SortSizes(sizes []string) {
	sort.SliceStable(sizes, func(i, j int) bool {
		a, b := NormalizeSize(sizes[i]), NormalizeSize(sizes[j])
		ra, okA := sizeOrder[a]
		rb, okB := sizeOrder[b]
		switch {
		case okA && okB:
			return ra < rb
		case okA != okB:
			return okA
		default:
			return a < b
		}
	})
}
