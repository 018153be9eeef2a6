package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchParams struct {
	Query      string `json:"query" jsonschema:"description=Pattern to search for"`
	MaxResults int    `json:"max_results,omitempty"`
}

func TestReflectParametersProducesInlineObjectSchema(t *testing.T) {
	schema := ReflectParameters(&searchParams{})
	require.NotNil(t, schema)
	assert.Equal(t, "object", schema.Type)
	assert.Empty(t, schema.Ref)

	query, ok := schema.Properties.Get("query")
	require.True(t, ok)
	assert.Equal(t, "string", query.Type)
	assert.Equal(t, "Pattern to search for", query.Description)

	max, ok := schema.Properties.Get("max_results")
	require.True(t, ok)
	assert.Equal(t, "integer", max.Type)

	assert.Contains(t, schema.Required, "query")
	assert.NotContains(t, schema.Required, "max_results")
}

func TestRegistryDefinitionsCarrySchemas(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&Definition{
		Name:        "code_search",
		Description: "Search the tree",
		Parameters:  ReflectParameters(&searchParams{}),
	}))
	require.NoError(t, reg.Register(&Definition{Name: "another"}))

	defs := reg.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "another", defs[0].Name)
	assert.Equal(t, "code_search", defs[1].Name)

	require.NotNil(t, defs[1].Parameters)
	_, ok := defs[1].Parameters.Properties.Get("query")
	assert.True(t, ok)
	assert.Nil(t, defs[0].Parameters)
}
