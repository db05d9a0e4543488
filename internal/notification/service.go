package notification

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/breatheroute/aqdash/internal/page"
)

const saveTimeout = 2 * time.Second

// Service records shown notifications and lists the history.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a Service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record implements page.Recorder. Storage failures are logged and never
// reach the page.
func (s *Service) Record(n page.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.repo.Save(ctx, FromNotification(n)); err != nil {
		s.logger.Warn().Err(err).Str("notification_id", n.ID).Msg("failed to record notification")
	}
}

// Recent returns up to limit records, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	recs, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

var _ page.Recorder = (*Service)(nil)
