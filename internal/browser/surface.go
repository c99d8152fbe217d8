package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/time/rate"

	"catalogsync/internal/logging"
	"catalogsync/internal/surface"
)

var (
	searchHint   = regexp.MustCompile(`(?i)buscar|pesquisar|procurar|search`)
	quantityHint = regexp.MustCompile(`(?i)estoque|quantidade dispon[ií]vel|stock`)
	saveHint     = regexp.MustCompile(`(?i)salvar|save|aplicar`)

	errNoSearchBox = errors.New("no search box on page")
)

// containerJS returns the innermost item-like element whose text contains
// the name and that also holds a control. Ancestors precede descendants in
// document order, so the last nested match wins. Without any control-bearing
// match the innermost text match is returned.
const containerJS = `(name) => {
	const want = name.toLowerCase();
	const sel = 'article, [role="article"], [role="row"], [role="listitem"], li, tr, [data-testid*="item" i]';
	const controls = '[role="switch"], [aria-checked], input, button, [role="button"]';
	let best = null;
	let withControl = null;
	for (const el of document.querySelectorAll(sel)) {
		const text = (el.innerText || el.textContent || '').toLowerCase();
		if (!text.includes(want)) continue;
		if (best === null || best.contains(el)) best = el;
		if (el.querySelector(controls) && (withControl === null || withControl.contains(el))) withControl = el;
	}
	return withControl || best;
}`

const maxLabel = 80

// Surface is the rod implementation of surface.Surface for the merchant
// panel's catalog page.
type Surface struct {
	page       *rod.Page
	cfg        Config
	strategies []AvailabilityStrategy
	limiter    *rate.Limiter
}

var _ surface.Surface = (*Surface)(nil)

// NewSurface wraps the catalog page. Interactions are spaced at least
// cfg.Pace apart.
func NewSurface(page *rod.Page, cfg Config) *Surface {
	limit := rate.Inf
	if cfg.Pace > 0 {
		limit = rate.Every(cfg.Pace)
	}
	return &Surface{
		page:       page,
		cfg:        cfg,
		strategies: DefaultStrategies(),
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type rodContainer struct {
	el       *rod.Element
	label    string
	control  *rod.Element
	strategy AvailabilityStrategy
}

func (c *rodContainer) Label() string { return c.label }

type rodQuantity struct {
	el *rod.Element
	s  *Surface
}

func (s *Surface) pace(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

func (s *Surface) action(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.GetActionTimeout())
}

// settle waits briefly for the page to stop re-rendering. Timeouts are fine.
func (s *Surface) settle(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = s.page.Context(sctx).WaitDOMStable(300*time.Millisecond, 0)
}

// Search implements surface.Surface.
func (s *Surface) Search(ctx context.Context, query string) error {
	inputs, err := s.page.Context(ctx).Elements("input")
	if err != nil {
		return err
	}
	var box *rod.Element
	for _, el := range inputs {
		if searchHint.MatchString(attrText(el, "placeholder", "aria-label", "name")) {
			box = el
			break
		}
	}
	if box == nil {
		return errNoSearchBox
	}

	if err := s.pace(ctx); err != nil {
		return err
	}
	actx, cancel := s.action(ctx)
	defer cancel()
	box = box.Context(actx)
	if err := box.WaitVisible(); err != nil {
		return fmt.Errorf("search box not visible: %w", err)
	}
	if err := box.SelectAllText(); err != nil {
		return err
	}
	if err := box.Input(query); err != nil {
		return err
	}
	if err := box.Type(input.Enter); err != nil {
		return err
	}
	s.settle(ctx)
	return nil
}

// FindItemContainer implements surface.Surface.
func (s *Surface) FindItemContainer(ctx context.Context, name string) (surface.Container, error) {
	actx, cancel := s.action(ctx)
	defer cancel()

	el, err := s.page.Context(actx).ElementByJS(rod.Eval(containerJS, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", surface.ErrItemNotFound, name, err)
	}
	el = el.Context(ctx)

	label := name
	if text, err := el.Text(); err == nil {
		label = clip(strings.Join(strings.Fields(text), " "), maxLabel)
	}
	return &rodContainer{el: el, label: label}, nil
}

func (s *Surface) container(c surface.Container) (*rodContainer, error) {
	rc, ok := c.(*rodContainer)
	if !ok {
		return nil, fmt.Errorf("foreign container %T", c)
	}
	return rc, nil
}

// locate finds and caches the availability control of rc.
func (s *Surface) locate(ctx context.Context, rc *rodContainer) error {
	if rc.control != nil {
		return nil
	}
	el := rc.el.Context(ctx)
	for _, st := range s.strategies {
		if ctl, ok := st.Locate(el); ok {
			rc.control, rc.strategy = ctl, st
			logging.BrowserDebug("%s: availability control via %s strategy", rc.label, st.Name())
			return nil
		}
	}
	return fmt.Errorf("%w in %q", surface.ErrControlNotFound, rc.label)
}

// ReadAvailability implements surface.Surface.
func (s *Surface) ReadAvailability(ctx context.Context, c surface.Container) (bool, error) {
	rc, err := s.container(c)
	if err != nil {
		return false, err
	}
	actx, cancel := s.action(ctx)
	defer cancel()
	if err := s.locate(actx, rc); err != nil {
		return false, err
	}
	return rc.strategy.State(rc.control.Context(actx))
}

// SetAvailability implements surface.Surface. The control is clicked once;
// a state that does not follow is logged, not retried.
func (s *Surface) SetAvailability(ctx context.Context, c surface.Container, available bool) error {
	rc, err := s.container(c)
	if err != nil {
		return err
	}
	if err := s.pace(ctx); err != nil {
		return err
	}
	actx, cancel := s.action(ctx)
	defer cancel()
	if err := s.locate(actx, rc); err != nil {
		return err
	}

	ctl := rc.control.Context(actx)
	if err := click(ctl); err != nil {
		return fmt.Errorf("click %s control: %w", rc.strategy.Name(), err)
	}
	s.settle(ctx)

	if got, err := rc.strategy.State(rc.control.Context(ctx)); err != nil {
		logging.BrowserWarn("%s: could not verify availability: %v", rc.label, err)
	} else if got != available {
		logging.BrowserWarn("%s: availability still %v after click", rc.label, got)
	}
	return nil
}

// click uses a real mouse click on visible controls and a DOM click on
// hidden ones (styled checkboxes hide the native input).
func click(el *rod.Element) error {
	if p, err := probeElement(el); err == nil && len(hiddenReasons(p)) == 0 {
		if err := el.WaitVisible(); err == nil {
			if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
				return nil
			}
		}
	}
	_, err := el.Eval(`() => this.click()`)
	return err
}

// ReadQuantityControl implements surface.Surface.
func (s *Surface) ReadQuantityControl(ctx context.Context, c surface.Container) (surface.QuantityControl, bool, error) {
	rc, err := s.container(c)
	if err != nil {
		return nil, false, err
	}
	inputs, err := rc.el.Context(ctx).Elements("input")
	if err != nil {
		return nil, false, err
	}
	var matched rod.Elements
	for _, el := range inputs {
		if quantityHint.MatchString(attrText(el, "placeholder", "aria-label", "name")) ||
			strings.EqualFold(attrText(el, "type"), "number") {
			matched = append(matched, el)
		}
	}
	if len(matched) == 0 {
		return nil, false, nil
	}
	return &rodQuantity{el: pickUsable(matched), s: s}, true, nil
}

func (q *rodQuantity) Current(ctx context.Context) (string, error) {
	v, err := q.el.Context(ctx).Property("value")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (q *rodQuantity) Set(ctx context.Context, quantity int) error {
	if err := q.s.pace(ctx); err != nil {
		return err
	}
	actx, cancel := q.s.action(ctx)
	defer cancel()
	el := q.el.Context(actx)
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("quantity field not visible: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(strconv.Itoa(quantity))
}

// Commit implements surface.Surface. Without a save button the edit is
// committed by moving focus away from the field.
func (s *Surface) Commit(ctx context.Context, c surface.Container) error {
	rc, err := s.container(c)
	if err != nil {
		return err
	}
	if err := s.pace(ctx); err != nil {
		return err
	}
	actx, cancel := s.action(ctx)
	defer cancel()

	buttons, err := rc.el.Context(actx).Elements(`button, [role="button"]`)
	if err == nil {
		for _, b := range buttons {
			text, err := b.Text()
			if err != nil || !saveHint.MatchString(text+" "+attrText(b, "aria-label")) {
				continue
			}
			if err := click(b); err != nil {
				return fmt.Errorf("click save: %w", err)
			}
			s.settle(ctx)
			return nil
		}
	}

	if err := s.page.Context(actx).Keyboard.Type(input.Tab); err != nil {
		return fmt.Errorf("blur quantity field: %w", err)
	}
	s.settle(ctx)
	return nil
}

// Snapshot implements surface.Surface.
func (s *Surface) Snapshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(false, nil)
}

// attrText joins the named attributes that are present.
func attrText(el *rod.Element, names ...string) string {
	var parts []string
	for _, n := range names {
		v, err := el.Attribute(n)
		if err == nil && v != nil && *v != "" {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, " ")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
