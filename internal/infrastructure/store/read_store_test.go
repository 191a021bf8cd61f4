package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadStore_SetGetDelete(t *testing.T) {
	rs := NewReadStore()

	require.NoError(t, rs.Set(CollectionOrders, "o-1", "first"))

	got, ok, err := rs.Get(CollectionOrders, "o-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "first", got)

	_, ok, err = rs.Get(CollectionProducts, "o-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rs.Delete(CollectionOrders, "o-1"))
	_, ok, _ = rs.Get(CollectionOrders, "o-1")
	assert.False(t, ok)
}

func TestReadStore_GetAllSortedByID(t *testing.T) {
	rs := NewReadStore()
	_ = rs.Set(CollectionProducts, "b", 2)
	_ = rs.Set(CollectionProducts, "c", 3)
	_ = rs.Set(CollectionProducts, "a", 1)

	items, err := rs.GetAll(CollectionProducts)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, items)

	empty, err := rs.GetAll(CollectionInventory)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReadStore_Update(t *testing.T) {
	rs := NewReadStore()
	_ = rs.Set(CollectionInventory, "p-1", 5)

	ok, err := rs.Update(CollectionInventory, "p-1", func(current any) any {
		return current.(int) - 2
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, _, _ := rs.Get(CollectionInventory, "p-1")
	assert.Equal(t, 3, got)

	ok, err = rs.Update(CollectionInventory, "missing", func(current any) any { return current })
	require.NoError(t, err)
	assert.False(t, ok)
}
