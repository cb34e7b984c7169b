package composite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibsnap/internal/domain/model"
	"ibsnap/internal/infrastructure/storage/memory"
)

type failingStore struct{ *memory.Repo }

func (failingStore) Write(context.Context, model.CacheEntry) error { return errors.New("mirror down") }

func TestCompositeWritesEverywhere(t *testing.T) {
	primary, mirror := memory.New(), memory.New()
	repo := New(primary, mirror, nil)
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, model.CacheEntry{Kind: model.KindAccount, SubKey: "U1", Payload: []byte(`{}`)}))

	for _, s := range []*memory.Repo{primary, mirror} {
		_, ok, err := s.Read(ctx, model.KindAccount, "U1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestCompositeReadFallsThrough(t *testing.T) {
	primary, mirror := memory.New(), memory.New()
	repo := New(primary, mirror)
	ctx := context.Background()

	require.NoError(t, mirror.Write(ctx, model.CacheEntry{Kind: model.KindQuote, SubKey: "AAPL", Payload: []byte(`{"last":1}`)}))

	e, ok, err := repo.Read(ctx, model.KindQuote, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"last":1}`, string(e.Payload))
}

func TestCompositeReturnsFirstWriteError(t *testing.T) {
	primary := memory.New()
	repo := New(primary, failingStore{memory.New()})
	ctx := context.Background()

	err := repo.Write(ctx, model.CacheEntry{Kind: model.KindQuote, SubKey: "AAPL"})
	assert.EqualError(t, err, "mirror down")

	_, ok, _ := primary.Read(ctx, model.KindQuote, "AAPL")
	assert.True(t, ok, "primary write still applied")
}

func TestCompositeRemoveSymbolsClearsMirrors(t *testing.T) {
	primary, mirror := memory.New(), memory.New()
	repo := New(primary, mirror)
	ctx := context.Background()

	require.NoError(t, repo.AddSymbol(ctx, "AAPL", "Apple"))
	require.NoError(t, repo.Write(ctx, model.CacheEntry{Kind: model.KindQuote, SubKey: "AAPL"}))

	n, err := repo.RemoveSymbols(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok, err := repo.Read(ctx, model.KindQuote, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)
}
