package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"studymate/internal/model"
	"studymate/internal/pkg/jwtutil"
	"studymate/internal/store"
)

var (
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
)

const minPasswordLen = 8

// AuthService owns the accounts kept in the state snapshot. An account's
// ID becomes the owner of everything its token touches.
type AuthService struct {
	store    *store.Store
	secret   string
	tokenTTL time.Duration
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

func NewAuthService(st *store.Store, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{store: st, secret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *AuthService) Register(input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !validUsername(username) || !strings.Contains(email, "@") || len(input.Password) < minPasswordLen {
		return nil, ErrInvalidInput
	}
	// guest is the shared owner of anonymous requests
	if strings.EqualFold(username, model.GuestOwnerID) {
		return nil, ErrUsernameExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	user := &model.User{Username: username, Email: email, PasswordHash: string(hash)}

	switch err := s.store.CreateUser(user); {
	case errors.Is(err, store.ErrUsernameTaken):
		return nil, ErrUsernameExists
	case errors.Is(err, store.ErrEmailTaken):
		return nil, ErrEmailExists
	case err != nil:
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.store.UserByName(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// equalize timing with the found-user path
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return s.issue(user)
}

func (s *AuthService) GetUserByID(id string) (*model.User, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.store.UserByID(id)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := jwtutil.GenerateToken(s.secret, s.tokenTTL, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: time.Now().Add(s.tokenTTL), User: user}, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("studymate-dummy-password"), bcrypt.DefaultCost)

func validUsername(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
