package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/webbase/adminapi/internal/apperr"
	"github.com/webbase/adminapi/internal/user"
)

// ErrInvalidCredentials is returned for an unknown user name and for a
// wrong password alike.
var ErrInvalidCredentials = errors.New("user name or password is incorrect")

// ErrWrongPassword is returned when a password change supplies the wrong
// current password.
var ErrWrongPassword = errors.New("current password is incorrect")

// CredentialStore is the subset of the user repository the login flow needs.
type CredentialStore interface {
	GetCredentialByName(ctx context.Context, name string) (*user.Credential, error)
	GetCredentialByID(ctx context.Context, id int64) (*user.Credential, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// Service verifies credentials and manages password hashes.
type Service struct {
	users      CredentialStore
	tokens     *TokenService
	bcryptCost int
	dummyHash  []byte
}

// NewService creates a new auth Service.
func NewService(users CredentialStore, tokens *TokenService, bcryptCost int) (*Service, error) {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	// Compared against when the user name is unknown so both failure paths
	// cost one bcrypt comparison.
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing dummy password: %w", err)
	}

	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}, nil
}

// HashPassword returns the bcrypt hash of password. Input longer than
// bcrypt accepts is reported as a validation error.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperr.ClientInput("VALIDATION_ERROR", err, "password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Login verifies name and password and issues a token. No state is written
// on failure.
func (s *Service) Login(ctx context.Context, name, password string) (*Token, error) {
	cred, err := s.users.GetCredentialByName(ctx, name)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.tokens.Issue(Seed{UserID: cred.UserID, Name: cred.Name, RoleCode: cred.RoleCode})
}

// ChangePassword replaces the caller's own password after checking the
// current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	cred, err := s.users.GetCredentialByID(ctx, userID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(oldPassword)) != nil {
		return ErrWrongPassword
	}

	return s.setPassword(ctx, userID, newPassword)
}

// ResetPassword replaces a user's password without checking the old one.
func (s *Service) ResetPassword(ctx context.Context, userID int64, newPassword string) error {
	if _, err := s.users.GetCredentialByID(ctx, userID); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *Service) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}
