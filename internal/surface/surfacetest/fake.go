// Package surfacetest provides an in-memory surface.Surface for tests.
package surfacetest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"catalogsync/internal/surface"
)

// Item is the fake panel state of one catalog entry.
type Item struct {
	Available   bool
	Quantity    string
	NoToggle    bool // container exists but has no availability control
	HasQuantity bool
}

// Panel is an in-memory surface. All fields may be set before use.
type Panel struct {
	mu sync.Mutex

	Items        map[string]*Item
	SearchErr    error
	SetErr       map[string]error // per display name
	CommitErr    error
	SnapshotData []byte

	calls []string
}

// NewPanel returns an empty panel.
func NewPanel() *Panel {
	return &Panel{Items: make(map[string]*Item), SetErr: make(map[string]error), SnapshotData: []byte("png")}
}

type container struct{ name string }

func (c container) Label() string { return c.name }

func (p *Panel) record(format string, args ...interface{}) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

// Calls returns the operations performed so far.
func (p *Panel) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Search implements surface.Surface.
func (p *Panel) Search(_ context.Context, query string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("search %s", query)
	return p.SearchErr
}

// FindItemContainer implements surface.Surface.
func (p *Panel) FindItemContainer(_ context.Context, name string) (surface.Container, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("find %s", name)

	keys := make([]string, 0, len(p.Items))
	for k := range p.Items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	want := strings.ToLower(name)
	for _, k := range keys {
		if strings.Contains(strings.ToLower(k), want) {
			return container{name: k}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", surface.ErrItemNotFound, name)
}

func (p *Panel) item(c surface.Container) *Item {
	return p.Items[c.Label()]
}

// ReadAvailability implements surface.Surface.
func (p *Panel) ReadAvailability(_ context.Context, c surface.Container) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	it := p.item(c)
	if it == nil || it.NoToggle {
		return false, surface.ErrControlNotFound
	}
	return it.Available, nil
}

// SetAvailability implements surface.Surface.
func (p *Panel) SetAvailability(_ context.Context, c surface.Container, available bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("toggle %s %v", c.Label(), available)
	if err := p.SetErr[c.Label()]; err != nil {
		return err
	}
	p.item(c).Available = available
	return nil
}

type quantity struct {
	p    *Panel
	name string
}

func (q quantity) Current(context.Context) (string, error) {
	q.p.mu.Lock()
	defer q.p.mu.Unlock()
	return q.p.Items[q.name].Quantity, nil
}

func (q quantity) Set(_ context.Context, n int) error {
	q.p.mu.Lock()
	defer q.p.mu.Unlock()
	q.p.record("quantity %s %d", q.name, n)
	q.p.Items[q.name].Quantity = strconv.Itoa(n)
	return nil
}

// ReadQuantityControl implements surface.Surface.
func (p *Panel) ReadQuantityControl(_ context.Context, c surface.Container) (surface.QuantityControl, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	it := p.item(c)
	if it == nil || !it.HasQuantity {
		return nil, false, nil
	}
	return quantity{p: p, name: c.Label()}, true, nil
}

// Commit implements surface.Surface.
func (p *Panel) Commit(_ context.Context, c surface.Container) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("commit %s", c.Label())
	return p.CommitErr
}

// Snapshot implements surface.Surface.
func (p *Panel) Snapshot(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("snapshot")
	return p.SnapshotData, nil
}
