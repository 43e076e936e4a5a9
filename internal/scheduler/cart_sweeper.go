package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

// CartSweeper periodically removes guest carts whose owners have not
// come back. User carts are kept indefinitely.
type CartSweeper struct {
	cron      *cron.Cron
	cartRepo  repository.CartRepository
	retention time.Duration
}

func NewCartSweeper(cartRepo repository.CartRepository, retention time.Duration) *CartSweeper {
	return &CartSweeper{
		cron:      cron.New(),
		cartRepo:  cartRepo,
		retention: retention,
	}
}

// Start schedules the hourly sweep.
func (s *CartSweeper) Start() error {
	_, err := s.cron.AddFunc("@hourly", s.sweep)
	if err != nil {
		logger.Error("Failed to add cron job for guest cart sweep", err)
		return err
	}

	s.cron.Start()
	logger.Info("Guest cart sweeper started", map[string]interface{}{
		"retention": s.retention.String(),
	})
	return nil
}

func (s *CartSweeper) sweep() {
	cutoff := time.Now().Add(-s.retention)

	removed, err := s.cartRepo.DeleteExpiredGuestCarts(cutoff)
	if err != nil {
		logger.Error("Guest cart sweep failed", err)
		return
	}
	if removed > 0 {
		logger.Info("Guest cart sweep completed", map[string]interface{}{
			"removed": removed,
		})
	}
}

// Stop stops the scheduler.
func (s *CartSweeper) Stop() {
	s.cron.Stop()
	logger.Info("Guest cart sweeper stopped")
}
