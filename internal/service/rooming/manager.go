// Package rooming keeps each city's rooming plan: which client sleeps in
// which room, with one room per client per city and no room over capacity.
package rooming

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"umrah-backoffice/internal/domain"
	"umrah-backoffice/internal/logging"
	"umrah-backoffice/internal/retry"
)

type roomStore interface {
	List(ctx context.Context) ([]domain.Room, error)
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	Create(ctx context.Context, r domain.Room) (*domain.Room, error)
	UpdateType(ctx context.Context, id string, t domain.RoomType) (*domain.Room, error)
	Delete(ctx context.Context, id string) error
	Assign(ctx context.Context, roomID, clientID string, city domain.City, at time.Time) (*domain.Assignment, error)
	Unassign(ctx context.Context, clientID string, city domain.City) (int, error)
}

type clientLister interface {
	List(ctx context.Context) ([]domain.Client, error)
}

// Options tunes a Manager. Zero values are usable.
type Options struct {
	Logger *zap.Logger
	// Retry applies to every refetch from the store.
	Retry retry.Options
	// Timeout bounds each store call; zero means 10s.
	Timeout time.Duration
	Now     func() time.Time
}

// NewRoom is the input for CreateRoom. Capacity follows from Type.
type NewRoom struct {
	HotelName   string          `json:"hotelName"`
	City        domain.City     `json:"city"`
	Type        domain.RoomType `json:"type"`
	FloorNumber *int            `json:"floorNumber,omitempty"`
	RoomNumber  string          `json:"roomNumber,omitempty"`
}

// RoomView is a room as the rooming screens show it.
type RoomView struct {
	domain.Room
	Occupancy int `json:"occupancy"`
	Available int `json:"available"`
	// Dirty marks rooms changed locally since the last fetch from the store.
	Dirty bool `json:"dirty"`
}

type snapshot struct {
	rooms   []domain.Room
	clients []domain.Client
}

// Manager holds a cached view of rooms and clients, applies edits to it
// optimistically and writes them through to the store. The store always
// wins: any failed write, or any mismatch found by Reconcile, replaces the
// cache wholesale.
type Manager struct {
	rooms   roomStore
	clients clientLister
	logger  *zap.Logger
	retry   retry.Options
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	loaded bool
	cache  snapshot
	dirty  map[string]bool

	events broker
}

func NewManager(rooms roomStore, clients clientLister, opts Options) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := logging.OrNop(opts.Logger)
	opts.Retry.Logger = logger
	return &Manager{
		rooms:   rooms,
		clients: clients,
		logger:  logger,
		retry:   opts.Retry,
		timeout: opts.Timeout,
		now:     opts.Now,
		dirty:   make(map[string]bool),
	}
}

// Subscribe returns a channel of cache events and a func that ends the subscription.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.events.subscribe()
}

func (m *Manager) publish(ev Event) {
	ev.At = m.now().UTC()
	if dropped := m.events.publish(ev); dropped > 0 {
		m.logger.Debug("rooming: slow subscribers missed an event", zap.Int("dropped", dropped), zap.String("kind", string(ev.Kind)))
	}
}

func (m *Manager) fetch(ctx context.Context) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rooms, err := retry.Do(gctx, m.retry, func(ctx context.Context) ([]domain.Room, error) {
			return retry.WithTimeout(ctx, m.timeout, m.rooms.List)
		})
		snap.rooms = rooms
		return err
	})
	g.Go(func() error {
		clients, err := retry.Do(gctx, m.retry, func(ctx context.Context) ([]domain.Client, error) {
			return retry.WithTimeout(ctx, m.timeout, m.clients.List)
		})
		snap.clients = clients
		return err
	})
	if err := g.Wait(); err != nil {
		return snapshot{}, fmt.Errorf("fetch rooming state: %w", err)
	}
	return snap, nil
}

// Refresh discards the cache and reloads it from the store.
func (m *Manager) Refresh(ctx context.Context) error {
	snap, err := m.fetch(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.replace(snap)
	ids := roomIDs(snap.rooms)
	m.mu.Unlock()

	m.publish(Event{Kind: EventRefreshed, RoomIDs: ids, OverCapacity: overCapacity(snap.rooms)})
	return nil
}

// replace must be called with mu held.
func (m *Manager) replace(snap snapshot) {
	m.cache = snap
	m.loaded = true
	m.dirty = make(map[string]bool)
}

// discard refetches after a failed write. The write's error is what the
// caller sees; a failing refetch is only logged.
func (m *Manager) discard(ctx context.Context, cause error) {
	m.logger.Warn("rooming: store write failed, refetching", zap.Error(cause))
	if err := m.Refresh(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error("rooming: refetch after failed write", zap.Error(err))
		m.mu.Lock()
		m.loaded = false
		m.mu.Unlock()
	}
}

func (m *Manager) ensureLoaded(ctx context.Context) error {
	m.mu.Lock()
	loaded := m.loaded
	m.mu.Unlock()
	if loaded {
		return nil
	}
	return m.Refresh(ctx)
}

// findRoom must be called with mu held.
func (m *Manager) findRoom(id string) int {
	return slices.IndexFunc(m.cache.rooms, func(r domain.Room) bool { return r.ID == id })
}

// findClient must be called with mu held.
func (m *Manager) findClient(id string) int {
	return slices.IndexFunc(m.cache.clients, func(c domain.Client) bool { return c.ID == id })
}

// locate returns the cached room and client, refetching once when either
// is missing from the cache.
func (m *Manager) locate(ctx context.Context, roomID, clientID string) (domain.Room, domain.Client, error) {
	for attempt := 0; ; attempt++ {
		m.mu.Lock()
		ri, ci := m.findRoom(roomID), m.findClient(clientID)
		var (
			room   domain.Room
			client domain.Client
		)
		if ri >= 0 {
			room = m.cache.rooms[ri]
		}
		if ci >= 0 {
			client = m.cache.clients[ci]
		}
		m.mu.Unlock()

		if ri >= 0 && ci >= 0 {
			return room, client, nil
		}
		if attempt > 0 {
			if ri < 0 {
				return domain.Room{}, domain.Client{}, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
			}
			return domain.Room{}, domain.Client{}, fmt.Errorf("client %s: %w", clientID, domain.ErrNotFound)
		}
		if err := m.Refresh(ctx); err != nil {
			return domain.Room{}, domain.Client{}, err
		}
	}
}

// AssignClientToRoom houses the client in roomID for city, retiring any
// room the client held in that city before.
func (m *Manager) AssignClientToRoom(ctx context.Context, roomID, clientID string, city domain.City) error {
	if !city.Valid() {
		return fmt.Errorf("city %q: %w", city, domain.ErrValidation)
	}
	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}
	room, client, err := m.locate(ctx, roomID, clientID)
	if err != nil {
		return err
	}
	if room.City != city {
		return fmt.Errorf("room %s is in %s, not %s: %w", roomID, room.City, city, domain.ErrValidation)
	}

	m.mu.Lock()
	ri := m.findRoom(roomID)
	if ri < 0 {
		m.mu.Unlock()
		return fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}
	target := m.cache.rooms[ri]
	taken := target.Occupancy()
	if target.Holds(clientID) {
		taken--
	}
	if taken >= target.Capacity {
		m.mu.Unlock()
		return fmt.Errorf("room %s has %d/%d: %w", roomID, taken, target.Capacity, domain.ErrCapacityExceeded)
	}

	at := m.now().UTC()
	tempID := "pending-" + uuid.NewString()
	touched := m.removeCards(clientID, city)
	ri = m.findRoom(roomID)
	m.cache.rooms[ri].Assignments = append(m.cache.rooms[ri].Assignments, domain.Assignment{
		ID:         tempID,
		RoomID:     roomID,
		ClientID:   clientID,
		City:       city,
		AssignedAt: at,
		Client:     &client,
	})
	touched = appendUnique(touched, roomID)
	m.markDirty(touched)
	m.mu.Unlock()
	m.publish(Event{Kind: EventChanged, RoomIDs: touched})

	a, err := retry.WithTimeout(ctx, m.timeout, func(ctx context.Context) (*domain.Assignment, error) {
		return m.rooms.Assign(ctx, roomID, clientID, city, at)
	})
	if err != nil {
		m.discard(ctx, err)
		return err
	}

	m.mu.Lock()
	if ri := m.findRoom(roomID); ri >= 0 {
		for i := range m.cache.rooms[ri].Assignments {
			if m.cache.rooms[ri].Assignments[i].ID == tempID {
				m.cache.rooms[ri].Assignments[i].ID = a.ID
			}
		}
	}
	m.mu.Unlock()

	m.logger.Info("rooming: client assigned",
		zap.String("room", roomID), zap.String("client", clientID), zap.String("city", string(city)))
	return nil
}

// RemoveClientFromRoom unhouses the client in city, or in every city when
// city is empty. Removing an unassigned client is a no-op.
func (m *Manager) RemoveClientFromRoom(ctx context.Context, clientID string, city domain.City) error {
	if city != "" && !city.Valid() {
		return fmt.Errorf("city %q: %w", city, domain.ErrValidation)
	}

	m.mu.Lock()
	touched := m.removeCards(clientID, city)
	m.markDirty(touched)
	m.mu.Unlock()
	if len(touched) > 0 {
		m.publish(Event{Kind: EventChanged, RoomIDs: touched})
	}

	n, err := retry.WithTimeout(ctx, m.timeout, func(ctx context.Context) (int, error) {
		return m.rooms.Unassign(ctx, clientID, city)
	})
	if err != nil {
		m.discard(ctx, err)
		return err
	}
	m.logger.Info("rooming: client unassigned",
		zap.String("client", clientID), zap.String("city", string(city)), zap.Int("removed", n))
	return nil
}

// removeCards drops the client's assignments in city (all cities when
// empty) from the cache and returns the rooms touched. mu must be held.
func (m *Manager) removeCards(clientID string, city domain.City) []string {
	var touched []string
	for i := range m.cache.rooms {
		r := &m.cache.rooms[i]
		kept := r.Assignments[:0:0]
		for _, a := range r.Assignments {
			if a.ClientID == clientID && (city == "" || a.City == city) {
				continue
			}
			kept = append(kept, a)
		}
		if len(kept) != len(r.Assignments) {
			r.Assignments = kept
			touched = append(touched, r.ID)
		}
	}
	return touched
}

// markDirty must be called with mu held.
func (m *Manager) markDirty(ids []string) {
	for _, id := range ids {
		m.dirty[id] = true
	}
}

// CreateRoom adds an empty room. Capacity is derived from the type.
func (m *Manager) CreateRoom(ctx context.Context, in NewRoom) (*domain.Room, error) {
	in.HotelName = strings.TrimSpace(in.HotelName)
	if in.HotelName == "" {
		return nil, fmt.Errorf("hotel name required: %w", domain.ErrValidation)
	}
	if !in.City.Valid() {
		return nil, fmt.Errorf("city %q: %w", in.City, domain.ErrValidation)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("room type %q: %w", in.Type, domain.ErrValidation)
	}

	r := domain.Room{
		HotelName:   in.HotelName,
		City:        in.City,
		FloorNumber: in.FloorNumber,
		RoomNumber:  strings.TrimSpace(in.RoomNumber),
	}
	r.SetType(in.Type)

	created, err := retry.WithTimeout(ctx, m.timeout, func(ctx context.Context) (*domain.Room, error) {
		return m.rooms.Create(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.loaded {
		m.cache.rooms = append(m.cache.rooms, *created)
	}
	m.mu.Unlock()
	m.publish(Event{Kind: EventChanged, RoomIDs: []string{created.ID}})
	return created, nil
}

// ChangeRoomType switches the type, and with it the capacity. It refuses to
// shrink a room below its occupancy.
func (m *Manager) ChangeRoomType(ctx context.Context, roomID string, t domain.RoomType) (*domain.Room, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("room type %q: %w", t, domain.ErrValidation)
	}
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if ri := m.findRoom(roomID); ri >= 0 {
		if occ := m.cache.rooms[ri].Occupancy(); occ > t.Capacity() {
			m.mu.Unlock()
			return nil, fmt.Errorf("room %s holds %d, %s seats %d: %w", roomID, occ, t, t.Capacity(), domain.ErrCapacityExceeded)
		}
	}
	m.mu.Unlock()

	updated, err := retry.WithTimeout(ctx, m.timeout, func(ctx context.Context) (*domain.Room, error) {
		return m.rooms.UpdateType(ctx, roomID, t)
	})
	if err != nil {
		m.discard(ctx, err)
		return nil, err
	}

	m.mu.Lock()
	if ri := m.findRoom(roomID); ri >= 0 {
		m.cache.rooms[ri] = *updated
		delete(m.dirty, roomID)
	}
	m.mu.Unlock()
	m.publish(Event{Kind: EventChanged, RoomIDs: []string{roomID}})
	return updated, nil
}

// DeleteRoom removes an empty room. Occupancy is checked against the store,
// not the cache.
func (m *Manager) DeleteRoom(ctx context.Context, roomID string) error {
	room, err := retry.Do(ctx, m.retry, func(ctx context.Context) (*domain.Room, error) {
		return retry.WithTimeout(ctx, m.timeout, func(ctx context.Context) (*domain.Room, error) {
			return m.rooms.GetByID(ctx, roomID)
		})
	})
	if err != nil {
		return err
	}
	if n := room.Occupancy(); n > 0 {
		return fmt.Errorf("room %s houses %d clients: %w", roomID, n, domain.ErrRoomNotEmpty)
	}

	if _, err := retry.WithTimeout(ctx, m.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.rooms.Delete(ctx, roomID)
	}); err != nil {
		m.discard(ctx, err)
		return err
	}

	m.mu.Lock()
	if ri := m.findRoom(roomID); ri >= 0 {
		m.cache.rooms = slices.Delete(m.cache.rooms, ri, ri+1)
	}
	delete(m.dirty, roomID)
	m.mu.Unlock()
	m.publish(Event{Kind: EventChanged, RoomIDs: []string{roomID}})
	m.logger.Info("rooming: room deleted", zap.String("room", roomID))
	return nil
}

// RoomsWithOccupancy lists rooms in city (every room when city is empty)
// from the cache.
func (m *Manager) RoomsWithOccupancy(ctx context.Context, city domain.City) ([]RoomView, error) {
	if city != "" && !city.Valid() {
		return nil, fmt.Errorf("city %q: %w", city, domain.ErrValidation)
	}
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RoomView, 0, len(m.cache.rooms))
	for _, r := range m.cache.rooms {
		if city != "" && r.City != city {
			continue
		}
		r.Assignments = slices.Clone(r.Assignments)
		if r.Assignments == nil {
			r.Assignments = []domain.Assignment{}
		}
		occ := r.Occupancy()
		out = append(out, RoomView{
			Room:      r,
			Occupancy: occ,
			Available: max(r.Capacity-occ, 0),
			Dirty:     m.dirty[r.ID],
		})
	}
	return out, nil
}

// UnassignedClients lists clients without a room in city. query, when set,
// matches a case-insensitive substring of the name or passport number.
func (m *Manager) UnassignedClients(ctx context.Context, city domain.City, query string) ([]domain.Client, error) {
	if !city.Valid() {
		return nil, fmt.Errorf("city %q: %w", city, domain.ErrValidation)
	}
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))

	m.mu.Lock()
	defer m.mu.Unlock()
	housed := make(map[string]bool)
	for _, r := range m.cache.rooms {
		for _, a := range r.Assignments {
			if a.City == city {
				housed[a.ClientID] = true
			}
		}
	}
	out := make([]domain.Client, 0)
	for _, c := range m.cache.clients {
		if housed[c.ID] {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.PassportNumber), q) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// Reconcile compares the store with the cache and replaces the cache when
// they disagree. It reports whether anything was replaced.
func (m *Manager) Reconcile(ctx context.Context) (bool, error) {
	snap, err := m.fetch(ctx)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	var changed []string
	if m.loaded {
		changed = diffRooms(m.cache.rooms, snap.rooms)
	}
	clientsChanged := !m.loaded || !sameClients(m.cache.clients, snap.clients)
	dirty := len(m.dirty)
	replaced := !m.loaded || len(changed) > 0 || clientsChanged || dirty > 0
	if replaced {
		m.replace(snap)
	}
	m.mu.Unlock()

	over := overCapacity(snap.rooms)
	for _, id := range over {
		m.logger.Warn("rooming: room over capacity", zap.String("room", id))
	}
	if replaced {
		if len(changed) > 0 {
			m.logger.Info("rooming: cache replaced from store", zap.Int("rooms", len(changed)), zap.Int("dirty", dirty))
		}
		m.publish(Event{Kind: EventRefreshed, RoomIDs: changed, OverCapacity: over})
	}
	return len(changed) > 0 || clientsChanged, nil
}

func roomIDs(rooms []domain.Room) []string {
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids
}

func overCapacity(rooms []domain.Room) []string {
	var ids []string
	for _, r := range rooms {
		if r.Occupancy() > r.Capacity {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// roomKey is the part of a room a reconciliation compares. Assignment ids
// are left out since optimistic cards carry temporary ones.
func roomKey(r domain.Room) string {
	seats := make([]string, 0, len(r.Assignments))
	for _, a := range r.Assignments {
		seats = append(seats, a.ClientID+"@"+string(a.City))
	}
	sort.Strings(seats)
	floor := ""
	if r.FloorNumber != nil {
		floor = fmt.Sprint(*r.FloorNumber)
	}
	return strings.Join([]string{r.HotelName, string(r.City), string(r.Type), fmt.Sprint(r.Capacity), floor, r.RoomNumber, strings.Join(seats, ",")}, "|")
}

// diffRooms returns the ids of rooms added, removed or changed between a and b.
func diffRooms(a, b []domain.Room) []string {
	before := make(map[string]string, len(a))
	for _, r := range a {
		before[r.ID] = roomKey(r)
	}
	var changed []string
	seen := make(map[string]bool, len(b))
	for _, r := range b {
		seen[r.ID] = true
		if k, ok := before[r.ID]; !ok || k != roomKey(r) {
			changed = append(changed, r.ID)
		}
	}
	for _, r := range a {
		if !seen[r.ID] {
			changed = append(changed, r.ID)
		}
	}
	return changed
}

func sameClients(a, b []domain.Client) bool {
	if len(a) != len(b) {
		return false
	}
	byID := make(map[string]domain.Client, len(a))
	for _, c := range a {
		c.CreatedAt = time.Time{}
		byID[c.ID] = c
	}
	for _, c := range b {
		c.CreatedAt = time.Time{}
		if prev, ok := byID[c.ID]; !ok || prev != c {
			return false
		}
	}
	return true
}

func appendUnique(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
