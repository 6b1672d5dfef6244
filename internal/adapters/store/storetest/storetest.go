// Package storetest is a contract suite every ports.QuoteStore must pass.
package storetest

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/inspira/internal/domain"
	"github.com/jsamuelsen/inspira/internal/ports"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) ports.QuoteStore

// Run exercises the full QuoteStore contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("create then list includes the record", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		created, err := store.Create(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.False(t, created.DateCreated.IsZero())
		assert.True(t, domain.EmptinessImageCounts.IsEmpty(&created), "new quotes start empty")

		all, err := store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, created.ID, all[0].ID)
		assert.True(t, created.DateCreated.Equal(all[0].DateCreated))
	})

	t.Run("update then list reflects new values", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		created, err := store.Create(ctx)
		require.NoError(t, err)

		text := "The obstacle is the way."
		creator := "Marcus Aurelius"
		found := "Meditations, book V"
		meaning := "Friction is material."
		image := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

		updated, err := store.Update(ctx, created.ID, domain.QuoteUpdate{
			Text:                  &text,
			Creator:               &creator,
			DescriptionOfHowFound: &found,
			Interpretation:        &meaning,
			ImageData:             image,
			SetImage:              true,
		})
		require.NoError(t, err)
		assert.Equal(t, text, updated.Text)

		all, err := store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)

		got := all[0]
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, text, got.Text)
		assert.Equal(t, creator, got.Creator)
		assert.Equal(t, found, got.DescriptionOfHowFound)
		assert.Equal(t, meaning, got.Interpretation)
		assert.Equal(t, image, got.ImageData)
		assert.True(t, created.DateCreated.Equal(got.DateCreated), "update keeps DateCreated")
	})

	t.Run("partial update leaves other fields", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		created, err := store.Create(ctx)
		require.NoError(t, err)

		text := "first"
		_, err = store.Update(ctx, created.ID, domain.QuoteUpdate{Text: &text})
		require.NoError(t, err)

		creator := "second"
		got, err := store.Update(ctx, created.ID, domain.QuoteUpdate{Creator: &creator})
		require.NoError(t, err)

		assert.Equal(t, "first", got.Text)
		assert.Equal(t, "second", got.Creator)
	})

	t.Run("image can be cleared", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		created, err := store.Create(ctx)
		require.NoError(t, err)

		_, err = store.Update(ctx, created.ID, domain.QuoteUpdate{ImageData: []byte{1, 2}, SetImage: true})
		require.NoError(t, err)

		_, err = store.Update(ctx, created.ID, domain.QuoteUpdate{SetImage: true})
		require.NoError(t, err)

		got, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Empty(t, got.ImageData)
	})

	t.Run("delete then list excludes the record", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		keep, err := store.Create(ctx)
		require.NoError(t, err)
		gone, err := store.Create(ctx)
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, gone.ID))

		all, err := store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, keep.ID, all[0].ID)

		_, err = store.Get(ctx, gone.ID)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("missing records report not found", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		_, err := store.Get(ctx, "missing")
		assert.True(t, domain.IsNotFound(err), "get: %v", err)

		text := "x"
		_, err = store.Update(ctx, "missing", domain.QuoteUpdate{Text: &text})
		assert.True(t, domain.IsNotFound(err), "update: %v", err)

		err = store.Delete(ctx, "missing")
		assert.True(t, domain.IsNotFound(err), "delete: %v", err)
	})

	t.Run("list is newest first", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		for range 5 {
			_, err := store.Create(ctx)
			require.NoError(t, err)
		}

		all, err := store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 5)

		assert.True(t, slices.IsSortedFunc(all, func(a, b domain.Quote) int {
			if c := b.DateCreated.Compare(a.DateCreated); c != 0 {
				return c
			}

			return strings.Compare(b.ID, a.ID)
		}), "quotes must be sorted newest first")
	})

	t.Run("returned images are copies", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		created, err := store.Create(ctx)
		require.NoError(t, err)

		_, err = store.Update(ctx, created.ID, domain.QuoteUpdate{ImageData: []byte{7, 7}, SetImage: true})
		require.NoError(t, err)

		first, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		first.ImageData[0] = 0

		second, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte{7, 7}, second.ImageData)
	})
}
