package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "purchases.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	has, err := s.HasPurchased(ctx, "starter")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.MarkPurchased(ctx, "starter"))
	require.NoError(t, s.MarkPurchased(ctx, "bundle"))
	require.NoError(t, s.MarkPurchased(ctx, "starter"), "conflicting insert is ignored")

	has, err = s.HasPurchased(ctx, "starter")
	require.NoError(t, err)
	assert.True(t, has)

	ids, err := s.ListPurchased(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"starter", "bundle"}, ids)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "purchases.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.MarkPurchased(ctx, "starter"))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	has, err := reopened.HasPurchased(ctx, "starter")
	require.NoError(t, err)
	assert.True(t, has)
}
