// Package catalog turns spreadsheet rows into catalog items and decides the
// desired panel state of each item.
package catalog

import "strings"

// Item is one normalized catalog row.
type Item struct {
	Name     string  // trimmed, never empty
	Quantity float64 // coerced stock, 0 when the cell was not numeric
	Status   string  // lowercased, trimmed
}

// Columns names the spreadsheet columns holding each item field.
type Columns struct {
	Name     string
	Quantity string
	Status   string
}

// Rules configures the decision engine.
type Rules struct {
	// StopSellAtZero forces an item unavailable when its stock is zero,
	// whatever its status text says.
	StopSellAtZero bool
}

// NameMap maps spreadsheet names to the display names used on the panel.
type NameMap map[string]string

// Lookup returns the mapped display name, or name itself when unmapped.
func (m NameMap) Lookup(name string) string {
	if v := strings.TrimSpace(m[name]); v != "" {
		return v
	}
	return name
}

// Decision is the desired panel state for one item.
type Decision struct {
	Item        Item
	DisplayName string
	Available   bool
	Quantity    int // max(0, floor(Item.Quantity))
}
