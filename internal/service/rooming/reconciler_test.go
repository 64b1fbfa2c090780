package rooming

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"umrah-backoffice/internal/domain"
)

func TestReconciler_PicksUpExternalWrites(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	f := newFixture(t)
	r := f.room(t, domain.CityMadinah, domain.RoomDouble)
	c := f.client(t, "Ahmed Ali")
	require.NoError(t, f.manager.Refresh(ctx))

	events, cancel := f.manager.Subscribe()
	defer cancel()

	rec := NewReconciler(f.manager, 10*time.Millisecond, nil)
	require.NoError(t, rec.Start(ctx))

	_, err := f.rooms.Assign(ctx, r.ID, c.ID, domain.CityMadinah, time.Now())
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	for found := false; !found; {
		select {
		case ev := <-events:
			found = ev.Kind == EventRefreshed && len(ev.RoomIDs) == 1 && ev.RoomIDs[0] == r.ID
		case <-deadline:
			t.Fatal("reconciler never refreshed the room")
		}
	}
	rec.Stop()

	assert.Equal(t, []string{c.ID}, occupants(t, f.manager, r.ID))
}

func TestReconciler_RejectsNonPositiveInterval(t *testing.T) {
	rec := NewReconciler(newFixture(t).manager, 0, nil)
	assert.Error(t, rec.Start(context.Background()))
}
