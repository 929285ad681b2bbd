package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
)

func TestTracker_AddIsIdempotent(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	opened := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

	rec := tr.Add("T-1", opened)
	rec.TrailActivated = true

	again := tr.Add("T-1", opened.Add(time.Hour))
	assert.Same(t, rec, again, "re-adding must keep the original record")
	assert.True(t, again.TrailActivated)
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_ReconcileDropsAbsentTickets(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	now := time.Now()
	tr.Add("T-1", now)
	tr.Add("T-2", now)
	tr.Add("T-3", now)

	open := []broker.Position{{Ticket: "T-2"}}
	removed := tr.Reconcile(open)

	assert.Equal(t, []string{"T-1", "T-3"}, removed)
	assert.Equal(t, 1, tr.Len())

	_, ok := tr.Get("T-2")
	assert.True(t, ok)
	_, ok = tr.Get("T-1")
	assert.False(t, ok)
}

func TestTracker_ReconcileEmptyVenueList(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Add("T-1", time.Now())

	removed := tr.Reconcile(nil)
	require.Equal(t, []string{"T-1"}, removed)
	assert.Equal(t, 0, tr.Len())

	// Nothing tracked, nothing removed.
	assert.Empty(t, tr.Reconcile(nil))
}
