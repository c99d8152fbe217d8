// Package surface describes the merchant panel as a set of capabilities and
// converges one catalog item to its decided state through them.
//
// Implementations decide how a capability maps onto the page (which roles,
// placeholders or icons to look for). Apply only sequences the calls.
package surface

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"catalogsync/internal/catalog"
	"catalogsync/internal/logging"
)

var (
	// ErrItemNotFound is returned when no container matches the display name.
	ErrItemNotFound = errors.New("item not found")

	// ErrControlNotFound is returned when a container has no availability
	// control of any known kind.
	ErrControlNotFound = errors.New("availability control not found")
)

// Container is an item's region on the panel.
type Container interface {
	// Label is the container's visible text, used in logs.
	Label() string
}

// QuantityControl is an editable stock field.
type QuantityControl interface {
	Current(ctx context.Context) (string, error)
	Set(ctx context.Context, quantity int) error
}

// Surface is the set of operations the panel must offer.
type Surface interface {
	// Search types query into the panel's search box, if it has one.
	Search(ctx context.Context, query string) error
	// FindItemContainer returns the container whose text contains name,
	// case-insensitively, or ErrItemNotFound.
	FindItemContainer(ctx context.Context, name string) (Container, error)
	// ReadAvailability returns the control's current state, or
	// ErrControlNotFound.
	ReadAvailability(ctx context.Context, c Container) (bool, error)
	SetAvailability(ctx context.Context, c Container, available bool) error
	// ReadQuantityControl returns ok=false when the container exposes no
	// stock field.
	ReadQuantityControl(ctx context.Context, c Container) (QuantityControl, bool, error)
	// Commit saves pending edits in the container.
	Commit(ctx context.Context, c Container) error
	// Snapshot captures the current view as PNG.
	Snapshot(ctx context.Context) ([]byte, error)
}

// Outcome reports what Apply changed.
type Outcome struct {
	AvailabilityChanged bool
	QuantityChanged     bool
}

// Changed reports whether anything was written.
func (o Outcome) Changed() bool {
	return o.AvailabilityChanged || o.QuantityChanged
}

// Apply converges one item. The availability toggle is required; the
// quantity field is optional and failing to locate it is not an error. A
// failed toggle is not retried.
func Apply(ctx context.Context, s Surface, d catalog.Decision) (Outcome, error) {
	var out Outcome
	log := logging.Get(logging.CategoryBrowser).With("item", d.DisplayName)

	if err := s.Search(ctx, d.DisplayName); err != nil {
		log.Debug("search unavailable: %v", err)
	}

	c, err := s.FindItemContainer(ctx, d.DisplayName)
	if err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			err = fmt.Errorf("%w: %v", ErrItemNotFound, err)
		}
		return out, err
	}

	current, err := s.ReadAvailability(ctx, c)
	if err != nil {
		return out, fmt.Errorf("read availability: %w", err)
	}
	if current != d.Available {
		if err := s.SetAvailability(ctx, c, d.Available); err != nil {
			return out, fmt.Errorf("set availability: %w", err)
		}
		out.AvailabilityChanged = true
		log.Info("availability %v -> %v", current, d.Available)
	} else {
		log.Debug("availability already %v", current)
	}

	qc, ok, err := s.ReadQuantityControl(ctx, c)
	if err != nil {
		log.Debug("quantity control lookup failed: %v", err)
		return out, nil
	}
	if !ok {
		return out, nil
	}

	want := strconv.Itoa(d.Quantity)
	if cur, err := qc.Current(ctx); err == nil && strings.TrimSpace(cur) == want {
		log.Debug("quantity already %s", want)
		return out, nil
	}
	if err := qc.Set(ctx, d.Quantity); err != nil {
		return out, fmt.Errorf("set quantity: %w", err)
	}
	if err := s.Commit(ctx, c); err != nil {
		return out, fmt.Errorf("commit quantity: %w", err)
	}
	out.QuantityChanged = true
	log.Info("quantity -> %s", want)
	return out, nil
}
