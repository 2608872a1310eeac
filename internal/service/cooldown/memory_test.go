package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"SpikeWatch/internal/domain/models"
)

func TestMemoryStoreMark(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	day := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)

	first, err := s.Mark(ctx, "AAPL", models.Stage1, day)
	require.NoError(t, err)
	require.True(t, first)

	again, err := s.Mark(ctx, "AAPL", models.Stage1, day)
	require.NoError(t, err)
	require.False(t, again)

	// Different stage and different symbol are independent keys.
	other, err := s.Mark(ctx, "AAPL", models.Stage2, day)
	require.NoError(t, err)
	require.True(t, other)
	other, err = s.Mark(ctx, "TLRY", models.Stage1, day)
	require.NoError(t, err)
	require.True(t, other)

	// A new trading day clears everything.
	next, err := s.Mark(ctx, "AAPL", models.Stage1, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.True(t, next)
}
