package session

import (
	"context"
	"log"
	"time"
)

type Service struct {
	blacklistRepo BlacklistRepository
}

func NewService(blacklistRepo BlacklistRepository) *Service {
	return &Service{blacklistRepo: blacklistRepo}
}

// Revoke blacklists a token id until its own expiry.
func (s *Service) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	return s.blacklistRepo.AddToken(ctx, jti, userID, expiresAt)
}

// IsBlacklisted satisfies httpx.BlacklistRepository.
func (s *Service) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.blacklistRepo.IsBlacklisted(ctx, jti)
}

// RunCleanup purges expired blacklist rows every interval until ctx is done.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.blacklistRepo.CleanupExpired(ctx)
			if err != nil {
				log.Printf("session blacklist_cleanup_failed error=%v", err)
				continue
			}
			if n > 0 {
				log.Printf("session blacklist_cleanup removed=%d", n)
			}
		}
	}
}
