package ai

import (
	"context"
	"errors"
	"strings"

	"studymate/internal/model"
)

var (
	ErrCancelled         = errors.New("completion cancelled")
	ErrMissingCredential = errors.New("missing api key")
	ErrEmptyResponse     = errors.New("empty completion choices")
)

// Completer is the remote model. Stream yields cumulative text snapshots;
// Complete is the single-shot variant used for refinement and titles.
type Completer interface {
	Stream(ctx context.Context, req Request) (*Stream, error)
	Complete(ctx context.Context, req Request) (string, error)
}

type Turn struct {
	Role model.Role
	Text string
}

type Request struct {
	System      string
	History     []Turn
	Prompt      string
	Documents   []model.Document
	Temperature float32

	// APIKey and Model override the configured defaults for one call.
	APIKey string
	Model  string
}

var credentialHints = []string{"api key", "not found", "invalid", "permission"}

// IsCredentialError reports whether err means the key is missing, wrong or
// not allowed to use the model.
func IsCredentialError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingCredential) {
		return true
	}
	if code, ok := statusCode(err); ok && (code == 401 || code == 403) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range credentialHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
