package browser

import (
	"regexp"
	"strings"

	"github.com/go-rod/rod"
)

// AvailabilityStrategy is one way a panel can render an item's on/off
// control. Strategies are probed in order per container; the first that
// finds a control wins.
type AvailabilityStrategy interface {
	Name() string
	// Locate finds the control inside container without waiting.
	Locate(container *rod.Element) (*rod.Element, bool)
	// State reads whether the control currently means "available".
	State(control *rod.Element) (bool, error)
}

// DefaultStrategies returns the built-in strategies in priority order.
func DefaultStrategies() []AvailabilityStrategy {
	return []AvailabilityStrategy{switchStrategy{}, iconStrategy{}}
}

// switchStrategy handles explicit boolean controls: role=switch, aria-checked
// toggles and native checkboxes.
type switchStrategy struct{}

const switchSelector = `[role="switch"], [aria-checked], input[type="checkbox"]`

func (switchStrategy) Name() string { return "switch" }

func (switchStrategy) Locate(container *rod.Element) (*rod.Element, bool) {
	els, err := container.Elements(switchSelector)
	if err != nil || len(els) == 0 {
		return nil, false
	}
	return pickUsable(els), true
}

func (switchStrategy) State(el *rod.Element) (bool, error) {
	aria, err := el.Attribute("aria-checked")
	if err != nil {
		return false, err
	}
	if aria != nil && *aria != "" {
		return parseChecked(*aria), nil
	}
	checked, err := el.Property("checked")
	if err != nil {
		return false, err
	}
	return checked.Bool(), nil
}

func parseChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "checked":
		return true
	}
	return false
}

// iconStrategy handles play/pause style buttons where the icon shows the
// action the button performs: a pause icon means the item is selling.
type iconStrategy struct{}

const iconSelector = `button, [role="button"]`

var (
	pauseHint = regexp.MustCompile(`(?i)pause(?:[^d]|$)|pausar|desativar|\bstop\b|\bparar\b`)
	playHint  = regexp.MustCompile(`(?i)\bplay|resume|retomar|\bativar\b|\bstart\b|iniciar`)
)

// iconHintJS gathers every text that may name the button's icon.
const iconHintJS = `() => {
	const parts = [
		this.getAttribute('aria-label'),
		this.getAttribute('title'),
		this.getAttribute('data-testid'),
		this.getAttribute('class'),
	];
	for (const n of this.querySelectorAll('svg title, [data-icon], [data-testid], [class*="icon" i]')) {
		parts.push(n.textContent, n.getAttribute('data-icon'), n.getAttribute('data-testid'), n.getAttribute('class'));
	}
	return parts.filter(Boolean).join(' ');
}`

// iconState maps an icon hint to the current availability. known is false
// when the hint names neither action.
func iconState(hint string) (available, known bool) {
	switch {
	case pauseHint.MatchString(hint):
		return true, true
	case playHint.MatchString(hint):
		return false, true
	}
	return false, false
}

func (iconStrategy) Name() string { return "icon" }

func iconHint(el *rod.Element) string {
	res, err := el.Eval(iconHintJS)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (iconStrategy) Locate(container *rod.Element) (*rod.Element, bool) {
	els, err := container.Elements(iconSelector)
	if err != nil {
		return nil, false
	}
	var matched rod.Elements
	for _, el := range els {
		if _, known := iconState(iconHint(el)); known {
			matched = append(matched, el)
		}
	}
	if len(matched) == 0 {
		return nil, false
	}
	return pickUsable(matched), true
}

func (iconStrategy) State(el *rod.Element) (bool, error) {
	available, _ := iconState(iconHint(el))
	return available, nil
}
