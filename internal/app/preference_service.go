package app

import (
	"errors"
	"strings"

	"studymate/internal/model"
	"studymate/internal/store"
)

type PreferenceService struct {
	store *store.Store
}

func NewPreferenceService(st *store.Store) *PreferenceService {
	return &PreferenceService{store: st}
}

func (s *PreferenceService) Theme() model.Theme {
	return s.store.Theme()
}

func (s *PreferenceService) SetTheme(raw string) (model.Theme, error) {
	theme := model.Theme(strings.ToLower(strings.TrimSpace(raw)))
	if err := s.store.SetTheme(theme); err != nil {
		if errors.Is(err, store.ErrInvalidTheme) {
			return "", ErrInvalidInput
		}
		return "", err
	}
	return theme, nil
}
