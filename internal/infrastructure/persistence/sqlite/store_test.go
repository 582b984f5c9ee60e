package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/offline-quest/internal/domain/shared"
)

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "offline.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)

	_, err = s.Get(ctx, "profile")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, s.Set(ctx, "profile", []byte(`{"total_xp":1}`)))
	require.NoError(t, s.Set(ctx, "profile", []byte(`{"total_xp":2}`)))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "profile")
	require.NoError(t, err)
	assert.Equal(t, `{"total_xp":2}`, string(got))

	require.NoError(t, s.Remove(ctx, "profile"))
	_, err = s.Get(ctx, "profile")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
