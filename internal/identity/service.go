package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	roleOperator = "operator"

	scopeDomestic      = "Domestic"
	scopeInternational = "International"
)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// two cases are indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service manages operator accounts.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures data required to create an operator account.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Phone        string
	OperatorType string
}

// Register creates a new operator with a hashed password and a generated
// operator code.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	if input.Name == "" || input.Email == "" {
		return User{}, errors.New("name and email are required")
	}
	if len(input.Password) < 8 {
		return User{}, errors.New("password must be at least 8 characters")
	}
	operatorType := input.OperatorType
	if operatorType == "" {
		operatorType = scopeDomestic
	}
	if operatorType != scopeDomestic && operatorType != scopeInternational {
		return User{}, fmt.Errorf("unknown operator type %q", operatorType)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	code, err := newOperatorCode()
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        strings.ToLower(input.Email),
		PasswordHash: hash,
		Phone:        input.Phone,
		OperatorCode: code,
		OperatorType: operatorType,
		Role:         roleOperator,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// FindByID fetches an operator by identifier.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

// ProfileUpdate carries the mutable profile fields; empty fields are left as-is.
type ProfileUpdate struct {
	Name         string
	Phone        string
	OperatorType string
}

// UpdateProfile applies the non-empty fields of the update and returns the
// resulting user.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if update.Name != "" {
		user.Name = update.Name
	}
	if update.Phone != "" {
		user.Phone = update.Phone
	}
	if update.OperatorType != "" {
		if update.OperatorType != scopeDomestic && update.OperatorType != scopeInternational {
			return User{}, fmt.Errorf("unknown operator type %q", update.OperatorType)
		}
		user.OperatorType = update.OperatorType
	}
	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

func newOperatorCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("generate operator code: %w", err)
	}
	return fmt.Sprintf("ASC360-OPP-%04d", n.Int64()+1000), nil
}
