package auth

import (
	"context"
	"errors"
	"log"
	"time"

	"libraryapi/internal/notify"
	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/user"
)

var ErrUnauthorized = errors.New("unauthorized")

// UserFinder looks up accounts by email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// TokenRevoker blacklists access token ids.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
}

// Notifier accepts fire-and-forget events.
type Notifier interface {
	Emit(e notify.Event)
}

// Token is an issued access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type Service struct {
	secret   string
	ttl      time.Duration
	users    UserFinder
	revoker  TokenRevoker
	notifier Notifier
	now      func() time.Time
}

func NewService(secret string, ttl time.Duration, users UserFinder, revoker TokenRevoker, notifier Notifier) *Service {
	return &Service{
		secret:   secret,
		ttl:      ttl,
		users:    users,
		revoker:  revoker,
		notifier: notifier,
		now:      time.Now,
	}
}

// Login verifies credentials and issues an access token. A user_logged_in
// event carrying ipAddress is emitted on success.
func (s *Service) Login(ctx context.Context, email, password, ipAddress string) (Token, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Token{}, ErrUnauthorized
		}
		return Token{}, err
	}
	if !crypto.VerifyPassword(u.Password, password) {
		return Token{}, ErrUnauthorized
	}

	accessToken, _, err := crypto.GenerateToken(s.secret, u.ID, u.Role, s.ttl)
	if err != nil {
		return Token{}, err
	}

	if s.notifier != nil {
		s.notifier.Emit(notify.UserLoggedIn(u.ID, ipAddress, s.now().UTC()))
	}

	return Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.ttl.Seconds()),
	}, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := crypto.ParseToken(s.secret, token)
	if err != nil {
		return ErrUnauthorized
	}

	expiresAt := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revoker.Revoke(ctx, claims.ID, claims.Sub, expiresAt); err != nil {
		return err
	}
	log.Printf("auth logout user_id=%s", claims.Sub)
	return nil
}
