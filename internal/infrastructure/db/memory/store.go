// Package memory provides a process-local store for the credential and
// booking contracts. Each call holds the lock for its whole read-modify-write,
// which gives the same single-statement atomicity the SQL and Mongo drivers
// rely on.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/deskflow/booking-approval/internal/core/domain"
)

type Store struct {
	mu        sync.RWMutex
	users     map[string]*domain.User // keyed by username
	usersByID map[string]*domain.User
	bookings  map[string]*domain.BookingRequest
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]*domain.User),
		usersByID: make(map[string]*domain.User),
		bookings:  make(map[string]*domain.BookingRequest),
	}
}

// Users exposes the store as a ports.UserRepository.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Bookings exposes the store as a ports.BookingRepository.
func (s *Store) Bookings() *BookingRepository { return &BookingRepository{s: s} }

// Ping always succeeds; it satisfies the readiness check signature.
func (s *Store) Ping(context.Context) error { return nil }

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.Username]; exists {
		return nil, domain.ErrDuplicateUsername
	}
	u := *user
	u.ID = uuid.NewString()
	r.s.users[u.Username] = &u
	r.s.usersByID[u.ID] = &u

	out := u
	return &out, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

type BookingRepository struct{ s *Store }

func (r *BookingRepository) Create(_ context.Context, b *domain.BookingRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b.ID = uuid.NewString()
	stored := *b
	r.s.bookings[b.ID] = &stored
	return nil
}

func (r *BookingRepository) FindByID(_ context.Context, id string) (*domain.BookingRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	out := *b
	return &out, nil
}

func (r *BookingRepository) Transition(_ context.Context, t domain.Transition) (*domain.BookingRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[t.ID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if b.Status != t.Stage.From {
		return nil, domain.ErrInvalidTransition
	}

	at := t.At
	b.Status = t.To
	switch t.Stage.Actor {
	case domain.RoleTeamManager:
		b.ManagerActionAt = &at
	case domain.RoleAdmin:
		b.AdminActionAt = &at
	}
	out := *b
	return &out, nil
}

func (r *BookingRepository) ListWithEmployee(_ context.Context) ([]domain.BookingView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	views := make([]domain.BookingView, 0, len(r.s.bookings))
	for _, b := range r.s.bookings {
		// Inner-join semantics: requests without a known employee are skipped.
		u, ok := r.s.usersByID[b.EmployeeID]
		if !ok {
			continue
		}
		views = append(views, domain.BookingView{BookingRequest: *b, EmployeeName: u.Username})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}
