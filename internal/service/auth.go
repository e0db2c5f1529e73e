package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	IsAdmin  bool
}

type LoginResult struct {
	User        *models.User
	AccessToken string
}

type AuthService struct {
	users  UserStore
	carts  CartStore
	hasher PasswordHasher
	tokens TokenSigner
	log    *slog.Logger
}

func NewAuthService(users UserStore, carts CartStore, hasher PasswordHasher, tokens TokenSigner, log *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		carts:  carts,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("all fields are mandatory")
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperr.Validation("password must be at most 72 bytes")
	}

	usernameTaken, emailTaken, err := s.users.Taken(ctx, in.Username, in.Email)
	if err != nil {
		return nil, apperr.Internal("failed to register user", err)
	}
	if usernameTaken {
		return nil, apperr.Conflict("username already taken")
	}
	if emailTaken {
		return nil, apperr.Conflict("email already taken")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to register user", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
	})
	if err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, database.ErrDuplicate) {
			if constraint, _ := database.UniqueViolation(err); strings.Contains(constraint, "username") {
				return nil, apperr.Conflict("username already taken")
			}
			return nil, apperr.Conflict("email already taken")
		}
		return nil, apperr.Internal("failed to register user", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID, "is_admin", user.IsAdmin)
	return user, nil
}

// Login checks credentials, makes sure the user has a cart and issues an
// access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("all fields are mandatory")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperr.NotFound("no such user")
		}
		return nil, apperr.Internal("failed to log in", err)
	}

	ok, err := s.hasher.Matches(user.PasswordHash, password)
	if err != nil {
		return nil, apperr.Internal("failed to log in", err)
	}
	if !ok {
		s.log.DebugContext(ctx, "login rejected", "user_id", user.ID)
		return nil, apperr.Auth("invalid password")
	}

	if _, err := s.carts.EnsureForUser(ctx, user.ID); err != nil {
		return nil, apperr.Internal("failed to log in", err)
	}

	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, IsAdmin: user.IsAdmin})
	if err != nil {
		return nil, apperr.Internal("failed to log in", err)
	}

	return &LoginResult{User: user, AccessToken: token}, nil
}

// GetUser returns the public record of id to its owner or an admin.
func (s *AuthService) GetUser(ctx context.Context, caller auth.Identity, id string) (*models.User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}
	if err := auth.AuthorizeOwnerOrAdmin(caller, userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return user, nil
}
