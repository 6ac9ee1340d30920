package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.CurrentState = "TIC_TAC_TOE"
		session.Contexts["DEV_CONTEXT_1"] = nil
		session.Contexts["city"] = "Lyon"
		session.RanHandlers = []string{"BONJOUR", "VEUX_TU_JOUER"}
		session.ObjectivesStack = []string{"AU_REVOIR"}
		session.HandlingStep = &domain.HandlingStep{Action: "VEUX_TU_JOUER", Repeated: 1}
		session.Touch(time.Now())

		err := store.Save(ctx, sessionID, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.CurrentState, loaded.CurrentState)
		assert.Equal(t, "Lyon", loaded.Contexts["city"])

		// A known but unset context must survive the round trip.
		value, known := loaded.Contexts["DEV_CONTEXT_1"]
		assert.True(t, known)
		assert.Nil(t, value)

		assert.Equal(t, session.RanHandlers, loaded.RanHandlers)
		assert.Equal(t, session.ObjectivesStack, loaded.ObjectivesStack)
		require.NotNil(t, loaded.HandlingStep)
		assert.Equal(t, *session.HandlingStep, *loaded.HandlingStep)
		assert.Equal(t, session.Version, loaded.Version)
		assert.True(t, session.UpdatedAt.Equal(loaded.UpdatedAt), "UpdatedAt should be preserved")
	})

	t.Run("Last Writer Wins", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.CurrentState = "A"
		session.Touch(time.Now())
		require.NoError(t, store.Save(ctx, sessionID, session))

		next := session.Clone()
		next.CurrentState = "B"
		next.Touch(time.Now())
		require.NoError(t, store.Save(ctx, sessionID, next))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "B", loaded.CurrentState)
		assert.Greater(t, loaded.Version, session.Version)
		assert.True(t, loaded.UpdatedAt.After(session.UpdatedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSession(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1))
		_ = store.Save(ctx, id2, domain.NewSession(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
