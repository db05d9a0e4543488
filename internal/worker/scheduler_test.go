package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/aqdash/internal/worker"
)

func TestScheduler_Stop(t *testing.T) {
	job := newJob(&scriptedRefresher{}, &notifierSpy{})

	s, err := worker.NewScheduler(context.Background(), job, time.Hour)
	require.NoError(t, err)

	s.Start()
	s.Stop()

	assert.False(t, s.Running())
}
