package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/maestro/errors"
	mtest "github.com/teranos/maestro/internal/testing"
)

func TestRunLog(t *testing.T) {
	ctx := context.Background()
	runs := NewRunLog(mtest.CreateTestDB(t))

	path := "/tmp/schedule_20261015.txt"
	first := RunRecord{
		ID:          "run-1",
		WindowStart: gridStart,
		WindowEnd:   gridStart.Add(8 * time.Hour),
		LineCount:   12,
		OutputPath:  &path,
		CreatedAt:   gridStart.Add(-time.Hour),
	}
	second := RunRecord{
		ID:          "run-2",
		WindowStart: gridStart.Add(24 * time.Hour),
		WindowEnd:   gridStart.Add(32 * time.Hour),
		CreatedAt:   gridStart.Add(23 * time.Hour),
	}
	require.NoError(t, runs.Create(ctx, first))
	require.NoError(t, runs.Create(ctx, second))

	got, err := runs.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, first.WindowStart, got.WindowStart)
	assert.Equal(t, first.WindowEnd, got.WindowEnd)
	assert.Equal(t, 12, got.LineCount)
	require.NotNil(t, got.OutputPath)
	assert.Equal(t, path, *got.OutputPath)

	list, err := runs.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-2", list[0].ID)
	assert.Nil(t, list[0].OutputPath)

	limited, err := runs.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = runs.Get(ctx, "missing")
	assert.True(t, errors.IsNotFoundError(err))

	assert.Error(t, runs.Create(ctx, first), "duplicate run id")
}
