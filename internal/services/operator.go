package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rosterhq/playerapi/internal/store"
	"github.com/rosterhq/playerapi/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultOperatorRole = "operator"
	minPasswordLength   = 8
	maxUsernameLength   = 64
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// OperatorRepository defines persistence operations for operators.
type OperatorRepository interface {
	GetByID(ctx context.Context, id int64) (types.Operator, error)
	GetByUsername(ctx context.Context, username string) (types.Operator, error)
	Create(ctx context.Context, operator types.Operator) (types.Operator, error)
	Count(ctx context.Context) (int, error)
}

// OperatorService encapsulates operator account use-cases.
type OperatorService struct {
	repo OperatorRepository
	cost int
}

func NewOperatorService(repo OperatorRepository) *OperatorService {
	return &OperatorService{repo: repo, cost: bcrypt.DefaultCost}
}

func (s *OperatorService) GetByID(ctx context.Context, id int64) (types.Operator, error) {
	operator, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return types.Operator{}, &NotFoundError{Resource: "operator", ID: id}
	}
	return operator, err
}

// HasOperators reports whether any operator account exists yet.
func (s *OperatorService) HasOperators(ctx context.Context) (bool, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Register creates an operator account with a bcrypt-hashed password.
func (s *OperatorService) Register(ctx context.Context, username, password string) (types.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return types.Operator{}, invalid("username", "must be between 1 and 64 characters")
	}
	if len(password) < minPasswordLength {
		return types.Operator{}, invalid("password", "must be at least 8 characters")
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.Operator{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Operator{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return types.Operator{}, err
	}

	return s.repo.Create(ctx, types.Operator{
		Username:     username,
		Role:         DefaultOperatorRole,
		PasswordHash: string(hashed),
	})
}

// Authenticate verifies the credentials and returns the operator.
func (s *OperatorService) Authenticate(ctx context.Context, username, password string) (types.Operator, error) {
	operator, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Operator{}, ErrInvalidCredentials
		}
		return types.Operator{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)); err != nil {
		return types.Operator{}, ErrInvalidCredentials
	}
	return operator, nil
}
