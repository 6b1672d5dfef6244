package badger

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/inspira/internal/adapters/store/storetest"
	"github.com/jsamuelsen/inspira/internal/domain"
	"github.com/jsamuelsen/inspira/internal/ports"
)

func newInMemoryStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	store, err := New(InMemoryConfig(), opts...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.QuoteStore {
		return newInMemoryStore(t)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.SyncWrites = false
	cfg.GCInterval = 0

	first, err := New(cfg)
	require.NoError(t, err)

	created, err := first.Create(ctx)
	require.NoError(t, err)

	creator := "Seneca"
	_, err = first.Update(ctx, created.ID, domain.QuoteUpdate{Creator: &creator})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	got, err := second.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Seneca", got.Creator)
	assert.True(t, created.DateCreated.Equal(got.DateCreated))
}

func TestStore_GCRunnerStartsAndStops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.SyncWrites = false
	cfg.GCInterval = 10 * time.Millisecond
	cfg.Logger = slog.New(slog.DiscardHandler)

	store, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, store.gc)

	time.Sleep(30 * time.Millisecond)

	require.NoError(t, store.Close())
	assert.NoError(t, store.Close(), "second close is a no-op")
}

func TestStore_OrdersByDateThenID(t *testing.T) {
	ctx := context.Background()
	same := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	n := 0

	store := newInMemoryStore(t,
		WithClock(func() time.Time { return same }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%02d", n)
		}),
	)

	for range 3 {
		_, err := store.Create(ctx)
		require.NoError(t, err)
	}

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "id-03", all[0].ID)
	assert.Equal(t, "id-01", all[2].ID)
}

func TestStore_Closed(t *testing.T) {
	store, err := New(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.ListAll(context.Background())
	assert.True(t, domain.IsUnavailable(err))
	assert.True(t, domain.IsUnavailable(store.Check(context.Background())))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestNewGCRunner_Validation(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		ratio    float64
	}{
		{name: "zero interval", interval: 0, ratio: 0.5},
		{name: "ratio too low", interval: time.Second, ratio: 0},
		{name: "ratio too high", interval: time.Second, ratio: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newGCRunner(nil, tt.interval, tt.ratio, slog.Default())
			assert.Error(t, err)
		})
	}
}
