package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"studymate/internal/model"
)

// SchemaVersion is the layout written by Save.
const SchemaVersion = 2

var ErrSchemaTooNew = errors.New("persist: stored schema is newer than supported")

const (
	keySchemaVersion = "schema_version"
	keyCategories    = "categories"
	keyConversations = "conversations"
	keyTheme         = "theme"
	keyUsers         = "users"
)

// Snapshotter reads and writes the whole application state under one
// namespace of a Backend.
type Snapshotter struct {
	backend   Backend
	namespace string
	logger    *zap.Logger
	now       func() time.Time
}

func NewSnapshotter(backend Backend, namespace string, logger *zap.Logger) *Snapshotter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Snapshotter{
		backend:   backend,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Snapshotter) key(name string) string {
	return s.namespace + ":" + name
}

// Load returns the persisted state, migrating older layouts in place.
func (s *Snapshotter) Load(ctx context.Context) (*model.State, error) {
	raw, err := s.backend.Get(ctx, s.key(keySchemaVersion))
	switch {
	case errors.Is(err, ErrNotFound):
		return s.loadUnversioned(ctx)
	case err != nil:
		return nil, fmt.Errorf("read schema version failed: %w", err)
	}

	version, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema version %q failed: %w", raw, err)
	}
	if version > SchemaVersion {
		return nil, fmt.Errorf("%w: found %d, supported %d", ErrSchemaTooNew, version, SchemaVersion)
	}
	if version < SchemaVersion {
		return s.loadUnversioned(ctx)
	}

	state := &model.State{}
	if err := s.readJSON(ctx, keyCategories, &state.Categories); err != nil {
		return nil, err
	}
	if err := s.readJSON(ctx, keyConversations, &state.Conversations); err != nil {
		return nil, err
	}
	if err := s.readJSON(ctx, keyUsers, &state.Users); err != nil {
		return nil, err
	}
	theme, err := s.readTheme(ctx, s.key(keyTheme))
	if err != nil {
		return nil, err
	}
	state.Theme = theme

	s.normalize(state)
	return state, nil
}

func (s *Snapshotter) loadUnversioned(ctx context.Context) (*model.State, error) {
	state, found, err := s.readLegacy(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		state = &model.State{}
		s.normalize(state)
		s.logger.Info("state_initialized", zap.String("namespace", s.namespace))
		return state, nil
	}

	s.normalize(state)
	if err := s.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("write migrated state failed: %w", err)
	}
	s.logger.Info("state_migrated",
		zap.Int("from", 1),
		zap.Int("to", SchemaVersion),
		zap.Int("categories", len(state.Categories)),
		zap.Int("conversations", len(state.Conversations)),
	)
	return state, nil
}

// Save writes every key and then the version marker.
func (s *Snapshotter) Save(ctx context.Context, state *model.State) error {
	if err := s.writeJSON(ctx, keyCategories, state.Categories); err != nil {
		return err
	}
	if err := s.writeJSON(ctx, keyConversations, state.Conversations); err != nil {
		return err
	}
	if err := s.writeJSON(ctx, keyUsers, state.Users); err != nil {
		return err
	}
	if err := s.writeJSON(ctx, keyTheme, state.Theme); err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.key(keySchemaVersion), strconv.Itoa(SchemaVersion)); err != nil {
		return fmt.Errorf("write schema version failed: %w", err)
	}
	return nil
}

// normalize applies the load-time invariants: at least one category, a
// valid theme, non-nil slices and no message left streaming.
func (s *Snapshotter) normalize(state *model.State) {
	if len(state.Categories) == 0 {
		state.Categories = []model.Category{model.NewDefaultCategory(s.now())}
	}
	for i := range state.Categories {
		if state.Categories[i].Attachments == nil {
			state.Categories[i].Attachments = []model.Document{}
		}
	}
	if state.Conversations == nil {
		state.Conversations = []model.Conversation{}
	}
	for i := range state.Conversations {
		conv := &state.Conversations[i]
		if conv.OwnerID == "" {
			conv.OwnerID = model.GuestOwnerID
		}
		if conv.Messages == nil {
			conv.Messages = []model.Message{}
		}
		for j := range conv.Messages {
			conv.Messages[j].IsStreaming = false
		}
	}
	if state.Users == nil {
		state.Users = []model.User{}
	}
	if !state.Theme.Valid() {
		state.Theme = model.ThemeLight
	}
}

func (s *Snapshotter) readJSON(ctx context.Context, name string, dst any) error {
	raw, err := s.backend.Get(ctx, s.key(name))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s failed: %w", name, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode %s failed: %w", name, err)
	}
	return nil
}

func (s *Snapshotter) writeJSON(ctx context.Context, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s failed: %w", name, err)
	}
	if err := s.backend.Set(ctx, s.key(name), string(payload)); err != nil {
		return fmt.Errorf("write %s failed: %w", name, err)
	}
	return nil
}

// readTheme accepts both a JSON string and the bare word the first layout used.
func (s *Snapshotter) readTheme(ctx context.Context, key string) (model.Theme, error) {
	raw, err := s.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read theme failed: %w", err)
	}
	var theme string
	if err := json.Unmarshal([]byte(raw), &theme); err != nil {
		theme = strings.TrimSpace(raw)
	}
	return model.Theme(theme), nil
}
