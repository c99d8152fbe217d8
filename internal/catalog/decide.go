package catalog

import "math"

// maxQuantity caps stock written to the panel.
const maxQuantity = math.MaxInt32

// TargetQuantity floors q and clamps it to [0, maxQuantity].
func TargetQuantity(q float64) int {
	if math.IsNaN(q) || q <= 0 {
		return 0
	}
	f := math.Floor(q)
	if f >= maxQuantity {
		return maxQuantity
	}
	return int(f)
}

// Decide computes the desired panel state for one item. It has no side
// effects.
func Decide(item Item, names NameMap, rules Rules) Decision {
	qty := TargetQuantity(item.Quantity)
	return Decision{
		Item:        item,
		DisplayName: names.Lookup(item.Name),
		Available:   IsActive(item.Status) && (!rules.StopSellAtZero || qty > 0),
		Quantity:    qty,
	}
}

// DecideAll applies Decide to every item, keeping order.
func DecideAll(items []Item, names NameMap, rules Rules) []Decision {
	out := make([]Decision, len(items))
	for i, it := range items {
		out[i] = Decide(it, names, rules)
	}
	return out
}
