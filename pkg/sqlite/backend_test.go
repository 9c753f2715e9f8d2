package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shoplist/pkg/sqlite"
	"github.com/mesh-intelligence/shoplist/pkg/types"
)

func TestNewBackend_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewBackend()

	_, err := store.Products()
	assert.ErrorIs(t, err, types.ErrStoreDetached)

	require.NoError(t, store.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	defer store.Detach()

	products, err := store.Products()
	require.NoError(t, err)

	id, err := products.Insert(ctx, &types.Product{Description: "Arroz Integral", Quantity: 2, UnitPrice: 3.5})
	require.NoError(t, err)

	found, err := products.Search(ctx, "INTEG")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ID)
	assert.Equal(t, 7.0, found[0].Total())
}
