package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"godsaeng/internal/util"
	"godsaeng/pkg/auth"
	"godsaeng/pkg/domain"
	"godsaeng/pkg/store"
	"godsaeng/pkg/token"
)

// TokenPair bundles the access and refresh tokens issued at login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SignUp registers a new account.
func (a *App) SignUp(email, password, username string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("valid email required")
	}
	if username == "" {
		return domain.User{}, fmt.Errorf("username required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	if exists {
		return domain.User{}, ErrEmailExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: hash,
		Username:     username,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login verifies credentials and issues a token pair.
func (a *App) Login(email, password string) (TokenPair, domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return TokenPair{}, domain.User{}, err
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return TokenPair{}, domain.User{}, ErrInvalidCredentials
	}
	access, err := a.tokens.AccessToken(user.ID)
	if err != nil {
		return TokenPair{}, domain.User{}, err
	}
	refresh, err := a.tokens.RefreshToken(user.ID)
	if err != nil {
		return TokenPair{}, domain.User{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, user, nil
}

// Refresh exchanges a refresh token for a fresh access token.
func (a *App) Refresh(refreshToken string) (string, error) {
	access, err := a.tokens.Refresh(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}
	return access, nil
}

// Authenticate resolves the user behind an access token.
func (a *App) Authenticate(accessToken string) (domain.User, error) {
	userID, err := a.tokens.ValidateAccess(accessToken)
	if err != nil {
		return domain.User{}, token.ErrInvalidToken
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// Profile returns the user's account details.
func (a *App) Profile(userID string) (domain.User, error) {
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// SetGodMode toggles the flag that unlocks non-default chat tones.
func (a *App) SetGodMode(userID string, enabled bool) (domain.User, error) {
	user, err := a.store.SetGodMode(userID, enabled)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}
