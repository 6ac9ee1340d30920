package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/tickstory/pkg/adapters/memory"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	s := domain.NewSession("iso")
	s.Contexts["city"] = "Lyon"
	require.NoError(t, store.Save(ctx, "iso", s))

	s.Contexts["city"] = "Paris"
	loaded, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	assert.Equal(t, "Lyon", loaded.Contexts["city"])

	loaded.RanHandlers = append(loaded.RanHandlers, "X")
	again, err := store.Load(ctx, "iso")
	require.NoError(t, err)
	assert.Empty(t, again.RanHandlers)
}
