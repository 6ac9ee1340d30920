package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/tickstory/pkg/adapters/memory"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := middleware.NewPIIMiddleware([]string{"password", "ssn"})(underlyingStore)

	ctx := context.Background()
	sessionID := "pii-session"
	session := domain.NewSession(sessionID)
	session.Contexts["username"] = "jdoe"
	session.Contexts["user_password"] = "secret123"
	session.Contexts["password_hint"] = nil
	session.Contexts["details"] = map[string]any{
		"address":    "123 St",
		"ssn_number": "999-99-9999",
	}

	require.NoError(t, secureStore.Save(ctx, sessionID, session))
	assert.Equal(t, "secret123", session.Contexts["user_password"], "caller's session must not change")

	stored, err := underlyingStore.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", stored.Contexts["username"])
	assert.Equal(t, middleware.MaskedValue, stored.Contexts["user_password"])

	// Unset contexts stay known and unset.
	value, known := stored.Contexts["password_hint"]
	assert.True(t, known)
	assert.Nil(t, value)

	details := stored.Contexts["details"].(map[string]any)
	assert.Equal(t, middleware.MaskedValue, details["ssn_number"])
	assert.Equal(t, "123 St", details["address"])
}

func TestChain_OrderAndContract(t *testing.T) {
	underlyingStore := memory.NewStore()
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{"card"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)}),
	)

	ctx := context.Background()
	session := domain.NewSession("s1")
	session.Contexts["card"] = "4111"
	require.NoError(t, store.Save(ctx, "s1", session))

	// PII runs first, so the decrypted session is masked.
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.MaskedValue, loaded.Contexts["card"])

	stored, err := underlyingStore.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, stored.Contexts, middleware.EncryptedContextKey)
}
