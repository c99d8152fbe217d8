package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"catalogsync/internal/logging"
	"catalogsync/internal/sheet"
)

// footerPattern matches the "Total Itens=N" summary row exports append.
var footerPattern = regexp.MustCompile(`(?i)^total\s*itens\s*=\s*\d+`)

// IsFooter reports whether name is a summary row rather than an item.
func IsFooter(name string) bool {
	return footerPattern.MatchString(strings.TrimSpace(name))
}

// Normalize converts rows into items, preserving order. Rows with an empty
// name and summary rows are dropped; nothing else is ever rejected.
func Normalize(rows []sheet.Row, cols Columns) []Item {
	items := make([]Item, 0, len(rows))
	for i, row := range rows {
		name := strings.TrimSpace(row[cols.Name])
		if name == "" {
			logging.CatalogDebug("row %d dropped: empty %q", i+1, cols.Name)
			continue
		}
		if IsFooter(name) {
			logging.CatalogDebug("row %d dropped: summary row %q", i+1, name)
			continue
		}
		items = append(items, Item{
			Name:     name,
			Quantity: ParseQuantity(row[cols.Quantity]),
			Status:   strings.ToLower(strings.TrimSpace(row[cols.Status])),
		})
	}
	logging.Catalog("normalized %d of %d rows", len(items), len(rows))
	return items
}

// ParseQuantity coerces a cell to a number. A comma is read as the decimal
// separator when no dot is present ("3,5"). Anything unparseable, NaN or
// infinite yields 0.
func ParseQuantity(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
