package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

type PebbleBackend struct {
	db     *pebble.DB
	logger *zap.Logger
}

// OpenPebble opens (or creates) a pebble database at path. opts may be nil.
func OpenPebble(path string, opts *pebble.Options, logger *zap.Logger) (*PebbleBackend, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	logger.Info("opening_pebble_db", zap.String("path", path))
	db, err := pebble.Open(path, opts)
	if err != nil {
		logger.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("open pebble failed: %w", err)
	}
	return &PebbleBackend{db: db, logger: logger}, nil
}

func (p *PebbleBackend) Get(_ context.Context, key string) (string, error) {
	v, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("pebble get %s failed: %w", key, err)
	}
	defer closer.Close()
	// v is only valid until closer.Close
	return string(v), nil
}

func (p *PebbleBackend) Set(_ context.Context, key, value string) error {
	if err := p.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		p.logger.Error("pebble_set_failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("pebble set %s failed: %w", key, err)
	}
	return nil
}

func (p *PebbleBackend) Delete(_ context.Context, key string) error {
	if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete %s failed: %w", key, err)
	}
	return nil
}

func (p *PebbleBackend) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return err
	}
	p.db = nil
	p.logger.Info("pebble_closed")
	return nil
}
