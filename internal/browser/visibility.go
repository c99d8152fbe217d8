package browser

import (
	"strconv"

	"github.com/go-rod/rod"
)

// elementProbe is what the page reports about a candidate control.
type elementProbe struct {
	Display       string
	Visibility    string
	Opacity       string
	PointerEvents string
	AriaHidden    string
	X, Y          float64
	Width, Height float64
}

// hiddenReasons lists why a control should not be clicked. Panels keep
// hidden duplicates of controls around (collapsed rows, offscreen
// templates); clicking those does nothing or toggles the wrong item.
func hiddenReasons(p elementProbe) []string {
	var reasons []string
	if p.Display == "none" {
		reasons = append(reasons, "Hidden via display:none")
	}
	if p.Visibility == "hidden" || p.Visibility == "collapse" {
		reasons = append(reasons, "Hidden via visibility:hidden")
	}
	if op, err := strconv.ParseFloat(p.Opacity, 64); err == nil && op == 0 {
		reasons = append(reasons, "Hidden via opacity:0")
	}
	if p.X < -1000 || p.Y < -1000 {
		reasons = append(reasons, "Positioned off-screen")
	}
	if p.Width < 2 && p.Height < 2 {
		reasons = append(reasons, "Zero or near-zero size")
	}
	if p.AriaHidden == "true" {
		reasons = append(reasons, "Marked as aria-hidden")
	}
	if p.PointerEvents == "none" {
		reasons = append(reasons, "Pointer events disabled")
	}
	return reasons
}

const probeJS = `() => {
	const s = window.getComputedStyle(this);
	const r = this.getBoundingClientRect();
	return {
		display: s.display,
		visibility: s.visibility,
		opacity: s.opacity,
		pointerEvents: s.pointerEvents,
		ariaHidden: this.getAttribute('aria-hidden') || '',
		x: r.left, y: r.top, width: r.width, height: r.height
	};
}`

func probeElement(el *rod.Element) (elementProbe, error) {
	res, err := el.Eval(probeJS)
	if err != nil {
		return elementProbe{}, err
	}
	v := res.Value
	return elementProbe{
		Display:       v.Get("display").Str(),
		Visibility:    v.Get("visibility").Str(),
		Opacity:       v.Get("opacity").Str(),
		PointerEvents: v.Get("pointerEvents").Str(),
		AriaHidden:    v.Get("ariaHidden").Str(),
		X:             v.Get("x").Num(),
		Y:             v.Get("y").Num(),
		Width:         v.Get("width").Num(),
		Height:        v.Get("height").Num(),
	}, nil
}

// pickUsable returns the first candidate with no hidden reasons, falling back
// to the first candidate. Hidden native checkboxes still carry the state.
func pickUsable(candidates rod.Elements) *rod.Element {
	if len(candidates) == 0 {
		return nil
	}
	for _, el := range candidates {
		p, err := probeElement(el)
		if err != nil {
			continue
		}
		if reasons := hiddenReasons(p); len(reasons) == 0 {
			return el
		}
	}
	return candidates[0]
}
