package surface_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogsync/internal/catalog"
	"catalogsync/internal/surface"
	"catalogsync/internal/surface/surfacetest"
)

func decision(name string, available bool, qty int) catalog.Decision {
	return catalog.Decision{Item: catalog.Item{Name: name}, DisplayName: name, Available: available, Quantity: qty}
}

func TestApply_TogglesWhenStateDiffers(t *testing.T) {
	p := surfacetest.NewPanel()
	p.Items["Coxinha Tradicional"] = &surfacetest.Item{Available: true}

	out, err := surface.Apply(context.Background(), p, decision("coxinha", false, 0))
	require.NoError(t, err)
	assert.Equal(t, surface.Outcome{AvailabilityChanged: true}, out)
	assert.False(t, p.Items["Coxinha Tradicional"].Available)
	assert.Equal(t, []string{"search coxinha", "find coxinha", "toggle Coxinha Tradicional false"}, p.Calls())
}

func TestApply_NoWriteWhenConverged(t *testing.T) {
	p := surfacetest.NewPanel()
	p.Items["Kibe"] = &surfacetest.Item{Available: true, HasQuantity: true, Quantity: "4"}

	out, err := surface.Apply(context.Background(), p, decision("Kibe", true, 4))
	require.NoError(t, err)
	assert.False(t, out.Changed())
	assert.Equal(t, []string{"search Kibe", "find Kibe"}, p.Calls())
}

func TestApply_WritesQuantityAndCommits(t *testing.T) {
	p := surfacetest.NewPanel()
	p.Items["Kibe"] = &surfacetest.Item{Available: true, HasQuantity: true, Quantity: "1"}

	out, err := surface.Apply(context.Background(), p, decision("Kibe", true, 9))
	require.NoError(t, err)
	assert.Equal(t, surface.Outcome{QuantityChanged: true}, out)
	assert.Equal(t, "9", p.Items["Kibe"].Quantity)
	assert.Contains(t, p.Calls(), "commit Kibe")
}

func TestApply_SearchFailureTolerated(t *testing.T) {
	p := surfacetest.NewPanel()
	p.SearchErr = errors.New("no search box")
	p.Items["Pastel"] = &surfacetest.Item{Available: false}

	out, err := surface.Apply(context.Background(), p, decision("Pastel", true, 2))
	require.NoError(t, err)
	assert.True(t, out.AvailabilityChanged)
}

func TestApply_Failures(t *testing.T) {
	t.Run("item not found", func(t *testing.T) {
		p := surfacetest.NewPanel()
		_, err := surface.Apply(context.Background(), p, decision("Pizza", true, 1))
		assert.ErrorIs(t, err, surface.ErrItemNotFound)
	})

	t.Run("no availability control", func(t *testing.T) {
		p := surfacetest.NewPanel()
		p.Items["Pizza"] = &surfacetest.Item{NoToggle: true, HasQuantity: true}
		_, err := surface.Apply(context.Background(), p, decision("Pizza", true, 1))
		assert.ErrorIs(t, err, surface.ErrControlNotFound)
		assert.NotContains(t, p.Calls(), "quantity Pizza 1")
	})

	t.Run("toggle failure is not retried", func(t *testing.T) {
		p := surfacetest.NewPanel()
		p.Items["Pizza"] = &surfacetest.Item{}
		p.SetErr["Pizza"] = errors.New("click intercepted")
		_, err := surface.Apply(context.Background(), p, decision("Pizza", true, 1))
		require.Error(t, err)

		toggles := 0
		for _, c := range p.Calls() {
			if c == "toggle Pizza true" {
				toggles++
			}
		}
		assert.Equal(t, 1, toggles)
	})

	t.Run("commit failure", func(t *testing.T) {
		p := surfacetest.NewPanel()
		p.Items["Pizza"] = &surfacetest.Item{Available: true, HasQuantity: true}
		p.CommitErr = errors.New("save button detached")
		out, err := surface.Apply(context.Background(), p, decision("Pizza", true, 3))
		require.Error(t, err)
		assert.False(t, out.QuantityChanged)
	})
}

type wrappedNotFound struct{ *surfacetest.Panel }

func (w wrappedNotFound) FindItemContainer(context.Context, string) (surface.Container, error) {
	return nil, context.DeadlineExceeded
}

func TestApply_LookupErrorsBecomeItemNotFound(t *testing.T) {
	_, err := surface.Apply(context.Background(), wrappedNotFound{surfacetest.NewPanel()}, decision("Pizza", true, 1))
	assert.ErrorIs(t, err, surface.ErrItemNotFound)
}
