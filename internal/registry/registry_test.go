package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Both implementations must behave identically.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	boltStore, err := NewBoltStore(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { boltStore.Close() })

	return map[string]Store{
		"bolt":   boltStore,
		"memory": NewMemoryStore(),
	}
}

func TestCreateGet(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec := &Record{
				ID:         "mainnet",
				Network:    "mainnet",
				DataDir:    "/data/reth",
				BinaryPath: "/usr/local/bin/reth",
				Desired:    "Running",
			}
			require.NoError(t, s.Create(ctx, rec))
			assert.False(t, rec.CreatedAt.IsZero())

			got, err := s.Get(ctx, "mainnet")
			require.NoError(t, err)
			assert.Equal(t, "mainnet", got.Network)
			assert.Equal(t, "/usr/local/bin/reth", got.BinaryPath)
		})
	}
}

func TestCreateDuplicate(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Create(ctx, &Record{ID: "sepolia"}))
			err := s.Create(ctx, &Record{ID: "sepolia"})
			assert.ErrorIs(t, err, ErrAlreadyExists)
		})
	}
}

func TestGetMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestUpdate(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			rec := &Record{ID: "mainnet", Desired: "Stopped"}
			require.NoError(t, s.Create(ctx, rec))

			rec.Desired = "Running"
			require.NoError(t, s.Update(ctx, rec))

			got, err := s.Get(ctx, "mainnet")
			require.NoError(t, err)
			assert.Equal(t, "Running", got.Desired)
		})
	}
}

func TestUpdateMissing(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := s.Update(context.Background(), &Record{ID: "ghost"})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDelete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, s.Create(ctx, &Record{ID: "mainnet"}))
			require.NoError(t, s.Delete(ctx, "mainnet"))

			_, err := s.Get(ctx, "mainnet")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "mainnet"), ErrNotFound)
		})
	}
}

func TestListSorted(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, id := range []string{"sepolia", "holesky", "mainnet"} {
				require.NoError(t, s.Create(ctx, &Record{ID: id}))
			}

			recs, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, recs, 3)
			assert.Equal(t, "holesky", recs[0].ID)
			assert.Equal(t, "mainnet", recs[1].ID)
			assert.Equal(t, "sepolia", recs[2].ID)
		})
	}
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	ctx := context.Background()

	s, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, &Record{ID: "mainnet", Network: "mainnet"}))
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "mainnet")
	require.NoError(t, err)
	assert.Equal(t, "mainnet", got.Network)
}
