package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"gastos/internal/core"
	"gastos/internal/repository"
)

// ErrInvalidRegistration wraps every registration input problem.
var ErrInvalidRegistration = errors.New("invalid registration")

// Session is returned by Register and Login.
type Session struct {
	User  core.User
	Token string
}

type Service struct {
	users  repository.UserStore
	tokens *TokenIssuer
}

func NewService(users repository.UserStore, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

func (s *Service) Tokens() *TokenIssuer { return s.tokens }

func (s *Service) Register(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case name == "" || email == "" || password == "":
		return Session{}, fmt.Errorf("%w: name, email and password are required", ErrInvalidRegistration)
	case len(password) < MinPasswordLength:
		return Session{}, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidRegistration, MinPasswordLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("%w: invalid email", ErrInvalidRegistration)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	u, err := s.users.CreateUser(ctx, core.User{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		return Session{}, err
	}
	return s.session(u)
}

// Login never distinguishes an unknown email from a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return Session{}, err
	}
	return s.session(u)
}

func (s *Service) Me(ctx context.Context, userID int64) (core.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *Service) session(u core.User) (Session, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token}, nil
}
