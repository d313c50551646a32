// Package service holds the business logic between the HTTP handlers and
// the repositories, document tools and models.
//
//	handler (HTTP) → service (rules) → repository (DB)
//	                               ↘ auth, document, nlp
//
// Services never touch http.Request or set cookies. They return
// *apperror.AppError values whose Message is safe to show to users.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/doc-insight/internal/apperror"
	"github.com/sakif/doc-insight/internal/auth"
	"github.com/sakif/doc-insight/internal/model"
	"github.com/sakif/doc-insight/internal/repository"
)

// User-facing account messages.
const (
	MsgFieldsRequired   = "All fields are required."
	MsgInvalidEmail     = "Please enter a valid email address."
	MsgPasswordTooLong  = "Password must be 72 bytes or fewer."
	MsgPasswordMismatch = "Passwords do not match. Please try again."
	MsgUserExists       = "Username or email already exists. Please choose another."
	MsgSignupSuccess    = "Signup successful, please login."
	MsgLoginFailed      = "Login failed. Check username and password."
)

// AccountService handles signup, login and the per-user history.
type AccountService struct {
	users     repository.UserRepository
	history   repository.HistoryRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAccountService creates an AccountService with all required dependencies.
func NewAccountService(
	users repository.UserRepository,
	history repository.HistoryRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		history:   history,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// SignupInput is the signup form.
type SignupInput struct {
	FirstName       string
	LastName        string
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// LoginResult bundles the user with the issued session token so the handler
// can set the cookie in one step.
type LoginResult struct {
	User  *model.User
	Token string
}

// Signup validates the form and creates the account.
//
// Passwords are compared before anything is looked up, and a taken username
// or email is reported without creating a row.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("", MsgFieldsRequired)
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperror.ValidationFailed("confirm_password", MsgPasswordMismatch)
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return nil, apperror.ValidationFailed("email", MsgInvalidEmail)
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password", MsgPasswordTooLong)
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("service/account: checking existing user: %w", err)
	}
	if exists {
		return nil, userExists()
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same name.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, userExists()
		}
		return nil, fmt.Errorf("service/account: creating user: %w", err)
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks the credentials and issues a session token. Unknown users and
// wrong passwords get the same error.
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperror.Unauthorized(MsgLoginFailed)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(MsgLoginFailed)
		}
		return nil, fmt.Errorf("service/account: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Error("unusable password hash",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized(MsgLoginFailed)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return &LoginResult{User: user, Token: token}, nil
}

// GetUserByID returns the user with the given ID.
// Returns apperror.ErrNotFound if the user does not exist.
func (s *AccountService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: getting user %s: %w", id, err)
	}
	return user, nil
}

// History lists the user's saved summaries, oldest first.
func (s *AccountService) History(ctx context.Context, userID string) ([]model.ChatHistory, error) {
	entries, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/account: listing history: %w", err)
	}
	return entries, nil
}

func userExists() *apperror.AppError {
	return &apperror.AppError{Err: apperror.ErrConflict, Message: MsgUserExists}
}
