package rooming

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/repository/client"
	"umrah-backoffice/internal/repository/room"
	"umrah-backoffice/internal/retry"
)

type fixture struct {
	clients *client.Memory
	rooms   *room.Memory
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clients := client.NewMemory()
	rooms := room.NewMemory(clients)
	return &fixture{
		clients: clients,
		rooms:   rooms,
		manager: NewManager(rooms, clients, Options{Retry: retry.Options{MaxRetries: 1, InitialDelay: time.Millisecond}}),
	}
}

func (f *fixture) client(t *testing.T, name string) domain.Client {
	t.Helper()
	c, err := f.clients.Create(context.Background(), domain.Client{Name: name})
	require.NoError(t, err)
	return *c
}

func (f *fixture) room(t *testing.T, city domain.City, typ domain.RoomType) domain.Room {
	t.Helper()
	r, err := f.manager.CreateRoom(context.Background(), NewRoom{HotelName: "Hilton", City: city, Type: typ})
	require.NoError(t, err)
	return *r
}

func occupants(t *testing.T, m *Manager, roomID string) []string {
	t.Helper()
	views, err := m.RoomsWithOccupancy(context.Background(), "")
	require.NoError(t, err)
	for _, v := range views {
		if v.ID == roomID {
			ids := make([]string, 0, len(v.Assignments))
			for _, a := range v.Assignments {
				ids = append(ids, a.ClientID)
			}
			return ids
		}
	}
	t.Fatalf("room %s not in view", roomID)
	return nil
}

func TestAssign_MovesClientWithinCity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, "Ahmed Ali")
	r1 := f.room(t, domain.CityMakkah, domain.RoomDouble)
	r2 := f.room(t, domain.CityMakkah, domain.RoomTriple)

	require.NoError(t, f.manager.AssignClientToRoom(ctx, r1.ID, c.ID, domain.CityMakkah))
	require.NoError(t, f.manager.AssignClientToRoom(ctx, r2.ID, c.ID, domain.CityMakkah))

	assert.Empty(t, occupants(t, f.manager, r1.ID))
	assert.Equal(t, []string{c.ID}, occupants(t, f.manager, r2.ID))

	// The store agrees with the cache.
	require.NoError(t, f.manager.Refresh(ctx))
	assert.Empty(t, occupants(t, f.manager, r1.ID))
	assert.Equal(t, []string{c.ID}, occupants(t, f.manager, r2.ID))
}

func TestAssign_CitiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, "Fatima Zahra")
	mk := f.room(t, domain.CityMakkah, domain.RoomDouble)
	md := f.room(t, domain.CityMadinah, domain.RoomDouble)
	mk2 := f.room(t, domain.CityMakkah, domain.RoomQuad)

	require.NoError(t, f.manager.AssignClientToRoom(ctx, md.ID, c.ID, domain.CityMadinah))
	require.NoError(t, f.manager.AssignClientToRoom(ctx, mk.ID, c.ID, domain.CityMakkah))
	require.NoError(t, f.manager.AssignClientToRoom(ctx, mk2.ID, c.ID, domain.CityMakkah))

	assert.Equal(t, []string{c.ID}, occupants(t, f.manager, md.ID))
	assert.Equal(t, []string{c.ID}, occupants(t, f.manager, mk2.ID))

	require.NoError(t, f.manager.RemoveClientFromRoom(ctx, c.ID, domain.CityMakkah))
	assert.Equal(t, []string{c.ID}, occupants(t, f.manager, md.ID))
	assert.Empty(t, occupants(t, f.manager, mk2.ID))
}

func TestAssign_CityMismatch(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Omar Said")
	md := f.room(t, domain.CityMadinah, domain.RoomDouble)

	err := f.manager.AssignClientToRoom(context.Background(), md.ID, c.ID, domain.CityMakkah)
	assert.ErrorIs(t, err, domain.ErrValidation)
	err = f.manager.AssignClientToRoom(context.Background(), md.ID, c.ID, "Jeddah")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAssign_UnknownRoomOrClient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, "Omar Said")
	r := f.room(t, domain.CityMakkah, domain.RoomDouble)

	assert.ErrorIs(t, f.manager.AssignClientToRoom(ctx, "missing", c.ID, domain.CityMakkah), domain.ErrNotFound)
	assert.ErrorIs(t, f.manager.AssignClientToRoom(ctx, r.ID, "missing", domain.CityMakkah), domain.ErrNotFound)
}

func TestAssign_SeesRecordsCreatedAfterLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.manager.RoomsWithOccupancy(ctx, "")
	require.NoError(t, err)

	c := f.client(t, "Late Arrival")
	r, err := f.rooms.Create(ctx, domain.Room{HotelName: "Swiss", City: domain.CityMakkah, Type: domain.RoomDouble})
	require.NoError(t, err)

	require.NoError(t, f.manager.AssignClientToRoom(ctx, r.ID, c.ID, domain.CityMakkah))
	assert.Equal(t, []string{c.ID}, occupants(t, f.manager, r.ID))
}

func TestRemove_UnassignedIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, "Youssef Amine")

	require.NoError(t, f.manager.RemoveClientFromRoom(ctx, c.ID, domain.CityMakkah))
	require.NoError(t, f.manager.RemoveClientFromRoom(ctx, c.ID, ""))
	require.NoError(t, f.manager.RemoveClientFromRoom(ctx, "never-existed", domain.CityMadinah))
}

func TestQuadRoom_FifthClientRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quad := f.room(t, domain.CityMakkah, domain.RoomQuad)
	require.Equal(t, 4, quad.Capacity)

	for _, name := range []string{"Ahmed Ali", "Omar Said", "Youssef Amine", "Karim Tazi"} {
		c := f.client(t, name)
		require.NoError(t, f.manager.AssignClientToRoom(ctx, quad.ID, c.ID, domain.CityMakkah))
	}
	fifth := f.client(t, "Hamza Benali")
	err := f.manager.AssignClientToRoom(ctx, quad.ID, fifth.ID, domain.CityMakkah)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	assert.Len(t, occupants(t, f.manager, quad.ID), 4)
	stored, err := f.rooms.GetByID(ctx, quad.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Occupancy())
}

func TestAssign_OccupantCanBeReassignedToFullRoom(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.room(t, domain.CityMakkah, domain.RoomDouble)
	a, b := f.client(t, "Ahmed Ali"), f.client(t, "Omar Said")
	require.NoError(t, f.manager.AssignClientToRoom(ctx, r.ID, a.ID, domain.CityMakkah))
	require.NoError(t, f.manager.AssignClientToRoom(ctx, r.ID, b.ID, domain.CityMakkah))

	require.NoError(t, f.manager.AssignClientToRoom(ctx, r.ID, a.ID, domain.CityMakkah))
	assert.ElementsMatch(t, []string{a.ID, b.ID}, occupants(t, f.manager, r.ID))
}

func TestAssign_StaleViewRejectedByStoreAndRefetched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.room(t, domain.CityMakkah, domain.RoomDouble)
	a, b, c := f.client(t, "Ahmed Ali"), f.client(t, "Omar Said"), f.client(t, "Karim Tazi")
	_, err := f.manager.RoomsWithOccupancy(ctx, "")
	require.NoError(t, err)

	// Another session fills the room behind the manager's back.
	other := NewManager(f.rooms, f.clients, Options{})
	require.NoError(t, other.AssignClientToRoom(ctx, r.ID, a.ID, domain.CityMakkah))
	require.NoError(t, other.AssignClientToRoom(ctx, r.ID, b.ID, domain.CityMakkah))

	err = f.manager.AssignClientToRoom(ctx, r.ID, c.ID, domain.CityMakkah)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, occupants(t, f.manager, r.ID))
}

func TestAssign_StoreFailureDiscardsOptimisticChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r1 := f.room(t, domain.CityMakkah, domain.RoomDouble)
	r2 := f.room(t, domain.CityMakkah, domain.RoomDouble)
	c := f.client(t, "Ahmed Ali")
	require.NoError(t, f.manager.AssignClientToRoom(ctx, r1.ID, c.ID, domain.CityMakkah))

	events, cancel := f.manager.Subscribe()
	defer cancel()

	boom := errors.New("connection reset")
	f.rooms.FailNext = boom
	err := f.manager.AssignClientToRoom(ctx, r2.ID, c.ID, domain.CityMakkah)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{c.ID}, occupants(t, f.manager, r1.ID))
	assert.Empty(t, occupants(t, f.manager, r2.ID))

	first := <-events
	assert.Equal(t, EventChanged, first.Kind)
	assert.ElementsMatch(t, []string{r1.ID, r2.ID}, first.RoomIDs)
	second := <-events
	assert.Equal(t, EventRefreshed, second.Kind)

	views, err := f.manager.RoomsWithOccupancy(ctx, domain.CityMakkah)
	require.NoError(t, err)
	for _, v := range views {
		assert.False(t, v.Dirty)
	}
}

func TestChangeRoomType(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.room(t, domain.CityMadinah, domain.RoomTriple)
	for _, name := range []string{"Ahmed Ali", "Omar Said", "Karim Tazi"} {
		c := f.client(t, name)
		require.NoError(t, f.manager.AssignClientToRoom(ctx, r.ID, c.ID, domain.CityMadinah))
	}

	_, err := f.manager.ChangeRoomType(ctx, r.ID, domain.RoomDouble)
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	_, err = f.manager.ChangeRoomType(ctx, r.ID, "Suite")
	assert.ErrorIs(t, err, domain.ErrValidation)

	updated, err := f.manager.ChangeRoomType(ctx, r.ID, domain.RoomQuint)
	require.NoError(t, err)
	assert.Equal(t, domain.RoomQuint, updated.Type)
	assert.Equal(t, 5, updated.Capacity)

	views, err := f.manager.RoomsWithOccupancy(ctx, domain.CityMadinah)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].Available)
}

func TestCreateRoom_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.manager.CreateRoom(ctx, NewRoom{HotelName: "  ", City: domain.CityMakkah, Type: domain.RoomDouble})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.manager.CreateRoom(ctx, NewRoom{HotelName: "Hilton", City: "Jeddah", Type: domain.RoomDouble})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.manager.CreateRoom(ctx, NewRoom{HotelName: "Hilton", City: domain.CityMakkah, Type: "Single"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteRoom(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.room(t, domain.CityMakkah, domain.RoomDouble)
	c := f.client(t, "Ahmed Ali")
	require.NoError(t, f.manager.AssignClientToRoom(ctx, r.ID, c.ID, domain.CityMakkah))

	assert.ErrorIs(t, f.manager.DeleteRoom(ctx, r.ID), domain.ErrRoomNotEmpty)

	require.NoError(t, f.manager.RemoveClientFromRoom(ctx, c.ID, domain.CityMakkah))
	require.NoError(t, f.manager.DeleteRoom(ctx, r.ID))

	views, err := f.manager.RoomsWithOccupancy(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.ErrorIs(t, f.manager.DeleteRoom(ctx, r.ID), domain.ErrNotFound)
}

func TestDeleteRoom_ChecksStoreNotCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.room(t, domain.CityMakkah, domain.RoomDouble)
	c := f.client(t, "Ahmed Ali")
	_, err := f.manager.RoomsWithOccupancy(ctx, "")
	require.NoError(t, err)

	_, err = f.rooms.Assign(ctx, r.ID, c.ID, domain.CityMakkah, time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, f.manager.DeleteRoom(ctx, r.ID), domain.ErrRoomNotEmpty)
}

func TestUnassignedClients(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mk := f.room(t, domain.CityMakkah, domain.RoomQuad)
	ahmed := f.client(t, "Ahmed Ali")
	fatima := f.client(t, "Fatima Zahra")
	passport, err := f.clients.Create(ctx, domain.Client{Name: "Karim Tazi", PassportNumber: "AB123456"})
	require.NoError(t, err)
	require.NoError(t, f.manager.Refresh(ctx))
	require.NoError(t, f.manager.AssignClientToRoom(ctx, mk.ID, ahmed.ID, domain.CityMakkah))

	makkah, err := f.manager.UnassignedClients(ctx, domain.CityMakkah, "")
	require.NoError(t, err)
	assert.Len(t, makkah, 2)

	madinah, err := f.manager.UnassignedClients(ctx, domain.CityMadinah, "")
	require.NoError(t, err)
	assert.Len(t, madinah, 3)

	byName, err := f.manager.UnassignedClients(ctx, domain.CityMakkah, "FATI")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, fatima.ID, byName[0].ID)

	byPassport, err := f.manager.UnassignedClients(ctx, domain.CityMakkah, "ab123")
	require.NoError(t, err)
	require.Len(t, byPassport, 1)
	assert.Equal(t, passport.ID, byPassport[0].ID)

	_, err = f.manager.UnassignedClients(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReconcile_ReplacesCacheOnMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.room(t, domain.CityMakkah, domain.RoomDouble)
	c := f.client(t, "Ahmed Ali")
	require.NoError(t, f.manager.Refresh(ctx))

	changed, err := f.manager.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	events, cancel := f.manager.Subscribe()
	defer cancel()

	_, err = f.rooms.Assign(ctx, r.ID, c.ID, domain.CityMakkah, time.Now())
	require.NoError(t, err)

	changed, err = f.manager.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{c.ID}, occupants(t, f.manager, r.ID))

	ev := <-events
	assert.Equal(t, EventRefreshed, ev.Kind)
	assert.Equal(t, []string{r.ID}, ev.RoomIDs)
}

func TestReconcile_ClearsDirtyFlags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r := f.room(t, domain.CityMakkah, domain.RoomDouble)
	c := f.client(t, "Ahmed Ali")
	require.NoError(t, f.manager.AssignClientToRoom(ctx, r.ID, c.ID, domain.CityMakkah))

	views, err := f.manager.RoomsWithOccupancy(ctx, "")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Dirty)

	changed, err := f.manager.Reconcile(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	views, err = f.manager.RoomsWithOccupancy(ctx, "")
	require.NoError(t, err)
	assert.False(t, views[0].Dirty)
}

func TestRefresh_RetriesTransientFailure(t *testing.T) {
	f := newFixture(t)
	f.rooms.FailNext = errors.New("temporary outage")
	require.NoError(t, f.manager.Refresh(context.Background()))
	assert.Equal(t, 2, f.rooms.Calls)
}

func TestConcurrentAssignmentsKeepInvariants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rooms := []domain.Room{
		f.room(t, domain.CityMakkah, domain.RoomDouble),
		f.room(t, domain.CityMakkah, domain.RoomTriple),
	}
	var clients []domain.Client
	for _, name := range []string{"Ahmed Ali", "Omar Said", "Karim Tazi", "Hamza Benali", "Youssef Amine", "Adil Naciri"} {
		clients = append(clients, f.client(t, name))
	}

	var wg sync.WaitGroup
	for i, c := range clients {
		for j := range rooms {
			wg.Add(1)
			go func(roomID, clientID string) {
				defer wg.Done()
				err := f.manager.AssignClientToRoom(ctx, roomID, clientID, domain.CityMakkah)
				if err != nil {
					assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
				}
			}(rooms[(i+j)%len(rooms)].ID, c.ID)
		}
	}
	wg.Wait()

	require.NoError(t, f.manager.Refresh(ctx))
	seen := map[string]int{}
	views, err := f.manager.RoomsWithOccupancy(ctx, domain.CityMakkah)
	require.NoError(t, err)
	for _, v := range views {
		assert.LessOrEqual(t, v.Occupancy, v.Capacity)
		for _, a := range v.Assignments {
			seen[a.ClientID]++
		}
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "client %s housed twice", id)
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	f := newFixture(t)
	events, cancel := f.manager.Subscribe()
	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
	require.NoError(t, f.manager.Refresh(context.Background()))
}
