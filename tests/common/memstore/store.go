//go:build unit || e2e

// Package memstore is an in-memory UnitOfWork for usecase tests. Transactions
// are serialized by a single mutex and rolled back on error.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"academy-booking/internal/domain/booking"
	"academy-booking/internal/infra"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type reservation struct {
	batchID  uuid.UUID
	seats    int
	released bool
}

type Job struct {
	ID        uuid.UUID
	Kind      string
	Topic     string
	Payload   []byte
	Attempts  int
	RunAt     time.Time
	SentAt    *time.Time
	Dead      bool
	LastError string
}

type state struct {
	bookings     map[uuid.UUID]*booking.Booking
	orders       map[string]uuid.UUID
	committed    map[uuid.UUID]int
	reservations map[uuid.UUID]reservation
	events       map[string]struct{}
	jobs         []*Job
}

func newState() *state {
	return &state{
		bookings:     make(map[uuid.UUID]*booking.Booking),
		orders:       make(map[string]uuid.UUID),
		committed:    make(map[uuid.UUID]int),
		reservations: make(map[uuid.UUID]reservation),
		events:       make(map[string]struct{}),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, b := range s.bookings {
		c.bookings[id] = cloneBooking(b)
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.committed {
		c.committed[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k := range s.events {
		c.events[k] = struct{}{}
	}
	for _, j := range s.jobs {
		cp := *j
		c.jobs = append(c.jobs, &cp)
	}
	return c
}

type Store struct {
	mu       sync.Mutex
	state    *state
	failNext error
}

func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// FailNext makes the next transaction return err without running.
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Seed stores a booking as if it had been created earlier, committing its seats
// when it is active.
func (s *Store) Seed(b *booking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.bookings[b.ID()] = cloneBooking(b)
	if o := b.Order(); o != nil {
		s.state.orders[o.ID] = b.ID()
	}
	if b.IsActive() {
		s.state.reservations[b.CapacityToken()] = reservation{batchID: b.BatchID(), seats: b.SeatCount()}
		s.state.committed[b.BatchID()] += b.SeatCount()
	}
}

// SetCommitted overwrites a batch counter, simulating ledger drift.
func (s *Store) SetCommitted(batchID uuid.UUID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.committed[batchID] = n
}

func (s *Store) Booking(id uuid.UUID) *booking.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.state.bookings[id]
	if !ok {
		return nil
	}
	return cloneBooking(b)
}

func (s *Store) Bookings() []*booking.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*booking.Booking, 0, len(s.state.bookings))
	for _, b := range s.state.bookings {
		out = append(out, cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out
}

func (s *Store) Committed(batchID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.committed[batchID]
}

// ActiveSeats counts seats held by active bookings, independent of the counter.
func (s *Store) ActiveSeats(batchID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.activeSeats(batchID)
}

func (s *Store) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.state.jobs))
	for i, j := range s.state.jobs {
		out[i] = *j
	}
	return out
}

func (s *Store) Topics() []string {
	jobs := s.Jobs()
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Topic
	}
	return out
}

func (st *state) activeSeats(batchID uuid.UUID) int {
	n := 0
	for _, b := range st.bookings {
		if b.BatchID() == batchID && b.IsActive() && !b.IsDeleted() {
			n += b.SeatCount()
		}
	}
	return n
}

type memTx struct {
	st *state
}

func (t *memTx) Bookings() shared.BookingRepository           { return bookingRepo{t.st} }
func (t *memTx) Capacity() shared.CapacityLedger              { return ledger{t.st} }
func (t *memTx) PaymentEvents() shared.PaymentEventRepository { return paymentEvents{t.st} }
func (t *memTx) Notifications() shared.NotificationRepository { return notifications{t.st} }

type bookingRepo struct{ st *state }

func (r bookingRepo) Create(_ context.Context, b *booking.Booking) error {
	if _, exists := r.st.bookings[b.ID()]; exists {
		return infra.NewRepositoryError(infra.KindDuplicateKey, "booking already exists")
	}
	held, _ := r.ActiveParticipants(context.Background(), b.BatchID(), b.ParticipantIDs())
	if b.IsActive() && len(held) > 0 {
		return infra.NewRepositoryError(infra.KindDuplicateKey, "participant already enrolled")
	}
	r.st.bookings[b.ID()] = cloneBooking(b)
	return nil
}

func (r bookingRepo) Update(_ context.Context, b *booking.Booking) error {
	if _, exists := r.st.bookings[b.ID()]; !exists {
		return infra.NewRepositoryError(infra.KindNotFound, "booking not found")
	}
	r.st.bookings[b.ID()] = cloneBooking(b)
	if o := b.Order(); o != nil {
		r.st.orders[o.ID] = b.ID()
	}
	return nil
}

func (r bookingRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, ok := r.st.bookings[id]
	if !ok {
		return nil, infra.NewRepositoryError(infra.KindNotFound, "booking not found")
	}
	return cloneBooking(b), nil
}

func (r bookingRepo) FindIDByOrderID(_ context.Context, orderID string) (uuid.UUID, error) {
	id, ok := r.st.orders[orderID]
	if !ok {
		return uuid.Nil, infra.NewRepositoryError(infra.KindNotFound, "order not found")
	}
	return id, nil
}

func (r bookingRepo) ActiveParticipants(_ context.Context, batchID uuid.UUID, participantIDs []uuid.UUID) ([]uuid.UUID, error) {
	wanted := make(map[uuid.UUID]struct{}, len(participantIDs))
	for _, id := range participantIDs {
		wanted[id] = struct{}{}
	}
	var out []uuid.UUID
	for _, b := range r.st.bookings {
		if b.BatchID() != batchID || !b.IsActive() || b.IsDeleted() {
			continue
		}
		for _, id := range b.ParticipantIDs() {
			if _, ok := wanted[id]; ok {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (r bookingRepo) ListStale(_ context.Context, statuses []booking.Status, updatedBefore time.Time, limit int) ([]uuid.UUID, error) {
	var stale []*booking.Booking
	for _, b := range r.st.bookings {
		if b.IsDeleted() || !b.UpdatedAt().Before(updatedBefore) {
			continue
		}
		for _, s := range statuses {
			if b.Status() == s {
				stale = append(stale, b)
				break
			}
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt().Before(stale[j].UpdatedAt()) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	ids := make([]uuid.UUID, len(stale))
	for i, b := range stale {
		ids[i] = b.ID()
	}
	return ids, nil
}

type ledger struct{ st *state }

func (l ledger) counter(batchID uuid.UUID) int {
	if n, ok := l.st.committed[batchID]; ok {
		return n
	}
	n := l.st.activeSeats(batchID)
	l.st.committed[batchID] = n
	return n
}

func (l ledger) TryReserve(_ context.Context, batchID uuid.UUID, capacity, seats int) (uuid.UUID, error) {
	committed := l.counter(batchID)
	if committed+seats > capacity {
		return uuid.Nil, &shared.CapacityError{BatchID: batchID, Requested: seats, Free: max(capacity-committed, 0)}
	}
	token := uuid.New()
	l.st.committed[batchID] = committed + seats
	l.st.reservations[token] = reservation{batchID: batchID, seats: seats}
	return token, nil
}

func (l ledger) Release(_ context.Context, token uuid.UUID) (bool, error) {
	r, ok := l.st.reservations[token]
	if !ok || r.released {
		return false, nil
	}
	r.released = true
	l.st.reservations[token] = r
	l.st.committed[r.batchID] = max(l.st.committed[r.batchID]-r.seats, 0)
	return true, nil
}

func (l ledger) FreeSeats(_ context.Context, batchID uuid.UUID, capacity int) (int, error) {
	return max(capacity-l.counter(batchID), 0), nil
}

func (l ledger) Reconcile(_ context.Context, batchID uuid.UUID, capacity int) (shared.ReconcileResult, error) {
	result := shared.ReconcileResult{BatchID: batchID, Capacity: capacity, Before: l.counter(batchID)}

	held := make(map[uuid.UUID]struct{})
	for _, b := range l.st.bookings {
		if b.IsActive() && !b.IsDeleted() {
			held[b.CapacityToken()] = struct{}{}
		}
	}
	for token, r := range l.st.reservations {
		if r.batchID != batchID || r.released {
			continue
		}
		if _, ok := held[token]; ok {
			continue
		}
		r.released = true
		l.st.reservations[token] = r
		result.OrphansReleased++
	}

	result.After = l.st.activeSeats(batchID)
	l.st.committed[batchID] = result.After
	return result, nil
}

type paymentEvents struct{ st *state }

func (p paymentEvents) MarkProcessed(_ context.Context, eventKey, _, _ string, _ time.Time) (bool, error) {
	if _, seen := p.st.events[eventKey]; seen {
		return false, nil
	}
	p.st.events[eventKey] = struct{}{}
	return true, nil
}

type notifications struct{ st *state }

func (n notifications) CreateJob(_ context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	n.st.jobs = append(n.st.jobs, &Job{
		ID:      uuid.New(),
		Kind:    kind,
		Topic:   topic,
		Payload: payload,
		RunAt:   runAt,
	})
	return nil
}

func (n notifications) ClaimDue(_ context.Context, now time.Time, limit int) ([]shared.NotificationJob, error) {
	var out []shared.NotificationJob
	for _, j := range n.st.jobs {
		if j.SentAt != nil || j.Dead || j.RunAt.After(now) {
			continue
		}
		out = append(out, shared.NotificationJob{
			ID:       j.ID,
			Kind:     j.Kind,
			Topic:    j.Topic,
			Payload:  j.Payload,
			Attempts: j.Attempts,
			RunAt:    j.RunAt,
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (n notifications) find(id uuid.UUID) (*Job, error) {
	for _, j := range n.st.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, infra.NewRepositoryError(infra.KindNotFound, "notification job not found")
}

func (n notifications) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time) error {
	j, err := n.find(id)
	if err != nil {
		return err
	}
	j.SentAt = &sentAt
	return nil
}

func (n notifications) MarkFailed(_ context.Context, id uuid.UUID, nextRunAt time.Time, lastError string, dead bool) error {
	j, err := n.find(id)
	if err != nil {
		return err
	}
	j.Attempts++
	j.RunAt = nextRunAt
	j.LastError = lastError
	j.Dead = dead
	return nil
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	p := booking.ReconstructParams{
		ID:               b.ID(),
		UserID:           b.UserID(),
		ParticipantIDs:   b.ParticipantIDs(),
		BatchID:          b.BatchID(),
		CenterID:         b.CenterID(),
		SportID:          b.SportID(),
		Status:           b.Status(),
		PaymentStatus:    b.PaymentStatus(),
		PaymentAttempts:  b.PaymentAttempts(),
		RefundRequested:  b.RefundRequested(),
		Amount:           b.Amount(),
		PaymentID:        copyString(b.PaymentID()),
		PaymentSignature: copyString(b.PaymentSignature()),
		Notes:            b.Notes(),
		CapacityToken:    b.CapacityToken(),
		IsActive:         b.IsActive(),
		IsDeleted:        b.IsDeleted(),
		CreatedAt:        b.CreatedAt(),
		UpdatedAt:        b.UpdatedAt(),
	}
	if o := b.Order(); o != nil {
		cp := *o
		p.Order = &cp
	}
	if rr := b.RejectReason(); rr != nil {
		cp := *rr
		p.RejectReason = &cp
	}
	if cr := b.CancelReason(); cr != nil {
		cp := *cr
		p.CancelReason = &cp
	}
	out, err := booking.ReconstructBooking(p)
	if err != nil {
		panic(err)
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

var _ shared.UnitOfWork = (*Store)(nil)
