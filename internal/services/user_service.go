package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/recipehub-be/internal/apperrors"
	"github.com/isdelr/recipehub-be/internal/auth"
	"github.com/isdelr/recipehub-be/internal/database"
	"github.com/isdelr/recipehub-be/internal/models"
	"github.com/rs/zerolog/log"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username string `json:"username" validate:"notblank,max=150,username"`
	Email    string `json:"email" validate:"notblank,max=254,email"`
	Password string `json:"password" validate:"required"`
	UserType string `json:"user_type" validate:"notblank,oneof=customer seller"`
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (models.User, TokenPair, error)
	Login(ctx context.Context, username, password string) (TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	SweepExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// UserService provides registration and token issuance.
type UserService struct {
	db         *sql.DB
	jwt        *auth.JWTManager
	passwords  auth.PasswordPolicy
	refreshTTL time.Duration
	events     EventServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, jwt *auth.JWTManager, passwords auth.PasswordPolicy, refreshTTL time.Duration, events EventServiceProvider) *UserService {
	return &UserService{
		db:         db,
		jwt:        jwt,
		passwords:  passwords,
		refreshTTL: refreshTTL,
		events:     events,
	}
}

// Register validates the payload, stores the account with a bcrypt hash and
// returns it together with a fresh token pair.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, TokenPair, error) {
	verr := validateStruct(in)
	if in.Password != "" {
		if err := s.passwords.Validate(in.Password, in.Username, in.Email); err != nil {
			var perr *apperrors.ValidationError
			if !errors.As(err, &perr) {
				return models.User{}, TokenPair{}, err
			}
			verr.Merge(perr)
		}
	}
	if err := verr.OrNil(); err != nil {
		return models.User{}, TokenPair{}, err
	}

	role, err := models.ParseRole(in.UserType)
	if err != nil {
		return models.User{}, TokenPair{}, apperrors.FieldError("user_type", err.Error())
	}

	hashedPassword, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, TokenPair{}, err
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	var pair TokenPair
	err = database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, username, email, password_hash, user_type, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return apperrors.Conflict("a user with that username already exists")
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}
		pair, err = s.issueTokenPair(ctx, tx, user)
		return err
	})
	if err != nil {
		return models.User{}, TokenPair{}, err
	}

	recordEvent(ctx, s.events, "account.register", "info",
		fmt.Sprintf("%s '%s' registered.", user.Role, user.Username), nil, &user.ID)

	user.PasswordHash = ""
	return user, pair, nil
}

// Login verifies a username/password and issues a token pair.
func (s *UserService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	user, err := s.getUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%w: no active account found with the given credentials", apperrors.ErrAuthentication)
		}
		return TokenPair{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return TokenPair{}, fmt.Errorf("%w: no active account found with the given credentials", apperrors.ErrAuthentication)
	}
	return s.issueTokenPair(ctx, s.db, user)
}

// Refresh validates a refresh token, rotates it, and returns a new pair.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, apperrors.FieldError("refresh", "This field is required.")
	}

	var pair TokenPair
	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		var stored models.RefreshToken
		err := tx.QueryRowContext(ctx,
			"SELECT token, user_id, expires_at FROM refresh_tokens WHERE token = ?", refreshToken).
			Scan(&stored.Token, &stored.UserID, &stored.ExpiresAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: token is invalid", apperrors.ErrAuthentication)
			}
			return err
		}

		if !stored.ExpiresAt.After(time.Now()) {
			return fmt.Errorf("%w: token is expired", apperrors.ErrAuthentication)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token = ?", refreshToken); err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}

		user, err := scanUser(tx.QueryRowContext(ctx,
			"SELECT id, username, email, password_hash, user_type, created_at FROM users WHERE id = ?", stored.UserID))
		if err != nil {
			return err
		}
		pair, err = s.issueTokenPair(ctx, tx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%w: token is invalid", apperrors.ErrAuthentication)
		}
		return TokenPair{}, err
	}
	return pair, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, user_type, created_at FROM users WHERE id = ?", id))
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// SweepExpiredTokens deletes refresh tokens that expired before now.
func (s *UserService) SweepExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("Swept expired refresh tokens")
	}
	return n, nil
}

func (s *UserService) getUserByUsername(ctx context.Context, username string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, user_type, created_at FROM users WHERE username = ?", username))
}

func (s *UserService) issueTokenPair(ctx context.Context, db database.DBTX, user models.User) (TokenPair, error) {
	access, err := s.jwt.GenerateJWT(user)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (token, user_id, expires_at) VALUES (?, ?, ?)",
		refresh, user.ID, time.Now().UTC().Add(s.refreshTTL))
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperrors.NotFound("user")
		}
		return models.User{}, err
	}
	user.Role, err = models.ParseRole(role)
	if err != nil {
		return models.User{}, fmt.Errorf("corrupt user row %s: %w", user.ID, err)
	}
	return user, nil
}
