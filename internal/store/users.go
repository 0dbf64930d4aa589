package store

import (
	"strings"

	"studymate/internal/model"
)

// User lookups return nil, nil when nothing matches.

func (s *Store) UserByID(id string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.ID == id }), nil
}

func (s *Store) UserByName(username string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Username == username }), nil
}

func (s *Store) UserByEmail(email string) (*model.User, error) {
	email = strings.ToLower(email)
	return s.findUser(func(u *model.User) bool { return strings.ToLower(u.Email) == email }), nil
}

// CreateUser assigns an ID and stores the user. Username and email must
// both be unused.
func (s *Store) CreateUser(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Users {
		if s.state.Users[i].Username == user.Username {
			return ErrUsernameTaken
		}
		if strings.EqualFold(s.state.Users[i].Email, user.Email) {
			return ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = s.newID()
	}
	user.CreatedAt = s.now()
	s.state.Users = append(s.state.Users, *user)
	s.flush()
	return nil
}

func (s *Store) findUser(match func(*model.User) bool) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Users {
		if match(&s.state.Users[i]) {
			u := s.state.Users[i]
			return &u
		}
	}
	return nil
}
