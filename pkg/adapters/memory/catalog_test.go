package memory_test

import (
	"testing"

	"github.com/aretw0/tickstory/pkg/adapters/memory"
	"github.com/aretw0/tickstory/pkg/domain"
	contract "github.com/aretw0/tickstory/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Contract(t *testing.T) {
	catalog, err := memory.NewCatalog(
		&domain.Story{StoryID: "greetings", Name: "Greetings"},
		&domain.Story{ID: "support", Name: "Support"},
	)
	require.NoError(t, err)

	contract.StoryCatalogContractTest(t, catalog, map[string]string{
		"greetings": "Greetings",
		"support":   "Support",
	})
}

func TestNewCatalog_Errors(t *testing.T) {
	_, err := memory.NewCatalog(&domain.Story{Name: "anonymous"})
	assert.Error(t, err)

	_, err = memory.NewCatalog(&domain.Story{StoryID: "a"}, &domain.Story{StoryID: "a"})
	assert.Error(t, err)
}
