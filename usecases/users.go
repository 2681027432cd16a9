package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"todo-server/db"
	"todo-server/entities"
	"todo-server/repositories"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// PasswordHasher hashes raw passwords with a salted one-way function.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Compare(hash, raw string) error
}

type UserUseCase struct {
	UserRepo repositories.UserRepository
	Tx       db.Transactor

	hasher   PasswordHasher
	validate *validator.Validate
	logger   *log.Logger
}

func NewUserUseCase(userRepo repositories.UserRepository, tx db.Transactor, hasher PasswordHasher, logger *log.Logger) *UserUseCase {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &UserUseCase{
		UserRepo: userRepo,
		Tx:       tx,
		hasher:   hasher,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterNewUser stores candidate with a hashed password and enabled=true.
// candidate.Password must hold the raw password; it is never stored.
func (uc *UserUseCase) RegisterNewUser(ctx context.Context, candidate *entities.User) (*entities.User, error) {
	if candidate == nil {
		return nil, NewValidationError("form", "Registration details are required")
	}
	candidate.Username = strings.TrimSpace(candidate.Username)
	candidate.Email = strings.TrimSpace(candidate.Email)
	if err := uc.validate.Struct(candidate); err != nil {
		return nil, ValidationFromValidator(err)
	}
	// max=72 counts runes; bcrypt counts bytes.
	if len(candidate.Password) > maxPasswordBytes {
		return nil, NewValidationError("password", passwordTooLong)
	}

	var stored *entities.User
	err := uc.Tx.Transaction(ctx, func(ctx context.Context) error {
		exists, err := uc.UserRepo.ExistsByUsername(ctx, candidate.Username)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicateUsername, candidate.Username)
		}

		exists, err = uc.UserRepo.ExistsByEmail(ctx, candidate.Email)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, candidate.Email)
		}

		hash, err := uc.hasher.Hash(candidate.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		user := &entities.User{
			Username: candidate.Username,
			Email:    candidate.Email,
			Password: hash,
			Enabled:  true,
		}
		if err := uc.UserRepo.Create(ctx, user); err != nil {
			return duplicateFrom(err, candidate)
		}
		stored = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("registered user", "user_id", stored.ID, "username", stored.Username)
	return stored, nil
}

func (uc *UserUseCase) UsernameExists(ctx context.Context, username string) (bool, error) {
	return uc.UserRepo.ExistsByUsername(ctx, username)
}

func (uc *UserUseCase) EmailExists(ctx context.Context, email string) (bool, error) {
	return uc.UserRepo.ExistsByEmail(ctx, email)
}

// Authenticate accepts a username or an email as login. Unknown users and
// wrong passwords both yield ErrBadCredentials.
func (uc *UserUseCase) Authenticate(ctx context.Context, login, password string) (*entities.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrBadCredentials
	}

	user, err := uc.UserRepo.GetByUsernameOrEmail(ctx, login)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := uc.hasher.Compare(user.Password, password); err != nil {
		return nil, ErrBadCredentials
	}
	if !user.Enabled {
		return nil, ErrUserDisabled
	}
	return user, nil
}

// GetUser loads the stored user behind an authenticated session.
func (uc *UserUseCase) GetUser(ctx context.Context, id uint64) (*entities.User, error) {
	if id == 0 {
		return nil, ErrUserUnresolved
	}
	user, err := uc.UserRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserUnresolved
	}
	return user, err
}

// EndSessions revokes every session token issued to user so far.
func (uc *UserUseCase) EndSessions(ctx context.Context, user *entities.User) error {
	if !user.Resolved() {
		return ErrUserUnresolved
	}
	err := uc.UserRepo.BumpSessionVersion(ctx, user.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrUserUnresolved
	}
	return err
}

// DeleteAccount removes user together with every task they own.
func (uc *UserUseCase) DeleteAccount(ctx context.Context, user *entities.User) error {
	if !user.Resolved() {
		return ErrUserUnresolved
	}
	err := uc.Tx.Transaction(ctx, func(ctx context.Context) error {
		return uc.UserRepo.Delete(ctx, user.ID)
	})
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrUserUnresolved
	}
	if err != nil {
		return err
	}
	uc.logger.Info("deleted account", "user_id", user.ID, "username", user.Username)
	return nil
}

// duplicateFrom maps a unique violation raised by a concurrent registration
// onto the matching duplicate error.
func duplicateFrom(err error, candidate *entities.User) error {
	var dup *repositories.DuplicateKeyError
	if !errors.As(err, &dup) {
		return err
	}
	if strings.Contains(dup.Constraint, "email") {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, candidate.Email)
	}
	return fmt.Errorf("%w: %s", ErrDuplicateUsername, candidate.Username)
}
