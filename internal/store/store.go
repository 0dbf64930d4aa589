package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studymate/internal/metrics"
	"studymate/internal/model"
	"studymate/internal/persist"
)

var (
	ErrBusy                 = errors.New("a send is already in flight")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrNotStreaming         = errors.New("message is not streaming")
	ErrLastCategory         = errors.New("the last category cannot be deleted")
	ErrInvalidName          = errors.New("name is empty")
	ErrInvalidTheme         = errors.New("theme must be light or dark")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrEmailTaken           = errors.New("email already exists")
)

// Saver writes a full state snapshot.
type Saver interface {
	Save(ctx context.Context, state *model.State) error
}

// Store owns the application state. Every mutation writes the full state
// through the Saver before the lock is released, so snapshots land in
// mutation order.
type Store struct {
	mu     sync.Mutex
	state  *model.State
	status map[string]model.Status

	saver          Saver
	persistTimeout time.Duration
	logger         *zap.Logger

	now   func() time.Time
	newID func() string
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) { s.persistTimeout = d }
}

func New(state *model.State, saver Saver, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		state:          state,
		status:         make(map[string]model.Status),
		saver:          saver,
		persistTimeout: 5 * time.Second,
		logger:         logger,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the persisted state and returns a store over it.
func Open(ctx context.Context, snap *persist.Snapshotter, logger *zap.Logger, opts ...Option) (*Store, error) {
	state, err := snap.Load(ctx)
	if err != nil {
		return nil, err
	}
	return New(state, snap, logger, opts...), nil
}

func (s *Store) NewID() string {
	return s.newID()
}

func (s *Store) Now() time.Time {
	return s.now()
}

// flush must be called with s.mu held. A failed write is logged and
// counted; the in-memory state stays authoritative and the next mutation
// rewrites everything.
func (s *Store) flush() {
	if s.saver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	start := time.Now()
	err := s.saver.Save(ctx, s.state)
	metrics.PersistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PersistFailures.Inc()
		s.logger.Error("state_persist_failed", zap.Error(err))
	}
}

// BeginSend moves owner from IDLE to PROCESSING or reports ErrBusy.
func (s *Store) BeginSend(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[owner]; ok && st != model.StatusIdle {
		return ErrBusy
	}
	s.status[owner] = model.StatusProcessing
	return nil
}

func (s *Store) SetStatus(owner string, status model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == model.StatusIdle {
		delete(s.status, owner)
		return
	}
	s.status[owner] = status
}

func (s *Store) EndSend(owner string) {
	s.SetStatus(owner, model.StatusIdle)
}

func (s *Store) Status(owner string) model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[owner]; ok {
		return st
	}
	return model.StatusIdle
}

func (s *Store) Theme() model.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Theme
}

func (s *Store) SetTheme(theme model.Theme) error {
	if !theme.Valid() {
		return ErrInvalidTheme
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Theme = theme
	s.flush()
	return nil
}
