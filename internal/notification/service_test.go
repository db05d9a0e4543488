package notification_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/aqdash/internal/notification"
	"github.com/breatheroute/aqdash/internal/page"
)

var shownAt = time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)

type brokenRepository struct{}

func (brokenRepository) Save(context.Context, notification.Record) error {
	return errors.New("disk full")
}

func (brokenRepository) ListRecent(context.Context, int) ([]notification.Record, error) {
	return nil, errors.New("disk full")
}

func note(id string, offset time.Duration) page.Notification {
	return page.Notification{
		ID:        id,
		Kind:      page.KindWarning,
		Message:   "PM2.5 rising",
		ShownAt:   shownAt.Add(offset),
		ExpiresAt: shownAt.Add(offset + page.DefaultNotificationTTL),
	}
}

func TestService_RecordAndRecent(t *testing.T) {
	svc := notification.NewService(notification.NewInMemoryRepository(0), zerolog.Nop())

	svc.Record(note("a", 0))
	svc.Record(note("b", time.Second))
	svc.Record(note("c", 2*time.Second))

	recs, err := svc.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
	assert.Equal(t, page.KindWarning, recs[0].Kind)
	assert.Equal(t, shownAt.Add(2*time.Second+5*time.Second), recs[0].ExpiresAt)
}

func TestService_EmptyHistoryIsNotNil(t *testing.T) {
	svc := notification.NewService(notification.NewInMemoryRepository(0), zerolog.Nop())

	recs, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestService_RecordFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	svc := notification.NewService(brokenRepository{}, zerolog.New(&buf))

	svc.Record(note("a", 0))

	assert.Contains(t, buf.String(), "failed to record notification")
	assert.Contains(t, buf.String(), `"notification_id":"a"`)

	_, err := svc.Recent(context.Background(), 10)
	assert.Error(t, err)
}

func TestInMemoryRepository_CapacityAndReplace(t *testing.T) {
	repo := notification.NewInMemoryRepository(2)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		rec := notification.FromNotification(note(id, time.Duration(i)*time.Second))
		require.NoError(t, repo.Save(ctx, rec))
	}

	replaced := notification.FromNotification(note("c", 10*time.Second))
	replaced.Message = "updated"
	require.NoError(t, repo.Save(ctx, replaced))

	recs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "updated", recs[0].Message)
	assert.Equal(t, "b", recs[1].ID)

	assert.ErrorIs(t, repo.Save(ctx, notification.Record{}), notification.ErrInvalidRecord)
}

func TestRecord_Active(t *testing.T) {
	rec := notification.FromNotification(note("a", 0))

	assert.True(t, rec.Active(shownAt.Add(4*time.Second)))
	assert.False(t, rec.Active(shownAt.Add(5*time.Second)))
}
