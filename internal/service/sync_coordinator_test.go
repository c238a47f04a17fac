package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stemsi/degree-backend/internal/metrics"
	"github.com/stemsi/degree-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCoordinator(t *testing.T) {
	ctx := context.Background()
	fields := model.DegreeFields{Name: "Nursing", Years: 3, Level: model.LevelUndergraduate, AverageSalary: 45000}

	t.Run("ok writes the current record", func(t *testing.T) {
		repo, idx, m := newMemRepo(), newMemIndex(), metrics.NewNop()
		d, err := repo.Create(ctx, &fields)
		require.NoError(t, err)

		res := NewSyncCoordinator(repo, idx, m, zerolog.Nop()).Sync(ctx, d.ID)

		assert.Equal(t, SyncOK, res.Status)
		assert.False(t, res.Failed())
		assert.NoError(t, res.Err)
		doc, ok := idx.doc(d.ID)
		require.True(t, ok)
		assert.Equal(t, fields, doc)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncTotal.WithLabelValues("ok")))
	})

	t.Run("missing record is skipped", func(t *testing.T) {
		repo, idx, m := newMemRepo(), newMemIndex(), metrics.NewNop()

		res := NewSyncCoordinator(repo, idx, m, zerolog.Nop()).Sync(ctx, "4f8e1a4e-3a3b-4a55-9a8e-2d1f0c6a9b10")

		assert.Equal(t, SyncSkipped, res.Status)
		assert.False(t, res.Failed())
		assert.Zero(t, idx.calls)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncTotal.WithLabelValues("skipped")))
	})

	t.Run("store read failure", func(t *testing.T) {
		repo, idx, m := newMemRepo(), newMemIndex(), metrics.NewNop()
		repo.failGet = errConnRefused

		res := NewSyncCoordinator(repo, idx, m, zerolog.Nop()).Sync(ctx, "4f8e1a4e-3a3b-4a55-9a8e-2d1f0c6a9b10")

		assert.True(t, res.Failed())
		assert.ErrorIs(t, res.Err, errConnRefused)
		assert.Zero(t, idx.calls)
	})

	t.Run("index failure", func(t *testing.T) {
		repo, idx, m := newMemRepo(), newMemIndex(), metrics.NewNop()
		d, err := repo.Create(ctx, &fields)
		require.NoError(t, err)
		idx.failIndex = errConnRefused

		res := NewSyncCoordinator(repo, idx, m, zerolog.Nop()).Sync(ctx, d.ID)

		assert.True(t, res.Failed())
		assert.ErrorIs(t, res.Err, errConnRefused)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncTotal.WithLabelValues("failed")))
	})
}

func TestSyncStatusString(t *testing.T) {
	assert.Equal(t, "ok", SyncOK.String())
	assert.Equal(t, "skipped", SyncSkipped.String())
	assert.Equal(t, "failed", SyncFailed.String())
	assert.Equal(t, "unknown", SyncStatus(42).String())
}
