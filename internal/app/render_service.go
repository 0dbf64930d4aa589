package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"

	"studymate/internal/metrics"
	"studymate/internal/render"
)

// RenderCache stores rendered markup by renderer fingerprint and content
// hash.
type RenderCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, html string) error
}

type RenderService struct {
	renderer *render.Renderer
	cache    RenderCache
	logger   *zap.Logger
}

func NewRenderService(renderer *render.Renderer, cache RenderCache, logger *zap.Logger) *RenderService {
	if renderer == nil {
		renderer = render.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenderService{renderer: renderer, cache: cache, logger: logger}
}

// Render renders text. Streaming snapshots bypass the cache since each is
// seen once.
func (s *RenderService) Render(ctx context.Context, text string, streaming bool) string {
	if streaming || s.cache == nil || text == "" {
		return s.renderer.Render(text)
	}

	key := contentKey(s.renderer.Fingerprint(), text)
	if html, ok, err := s.cache.Get(ctx, key); err != nil {
		metrics.RenderCache.WithLabelValues("error").Inc()
		s.logger.Warn("render_cache_get_failed", zap.Error(err))
	} else if ok {
		metrics.RenderCache.WithLabelValues("hit").Inc()
		return html
	} else {
		metrics.RenderCache.WithLabelValues("miss").Inc()
	}

	html := s.renderer.Render(text)
	if err := s.cache.Set(ctx, key, html); err != nil {
		s.logger.Warn("render_cache_set_failed", zap.Error(err))
	}
	return html
}

func contentKey(fingerprint, text string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
