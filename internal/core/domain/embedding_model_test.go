package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }

func TestEmbeddingModelDetailFromModel(t *testing.T) {
	t.Run("self hosted model", func(t *testing.T) {
		m := EmbeddingModel{
			ModelName:     "nomic-embed-text",
			ModelDim:      768,
			Normalize:     true,
			QueryPrefix:   strPtr("search_query: "),
			PassagePrefix: strPtr("search_document: "),
		}

		d := EmbeddingModelDetailFromModel(m)

		assert.Equal(t, "nomic-embed-text", d.ModelName)
		assert.Equal(t, 768, d.ModelDim)
		assert.True(t, d.Normalize)
		require.NotNil(t, d.QueryPrefix)
		assert.Equal(t, "search_query: ", *d.QueryPrefix)
		require.NotNil(t, d.PassagePrefix)
		assert.Equal(t, "search_document: ", *d.PassagePrefix)
		assert.Nil(t, d.CloudProviderID)
		assert.Nil(t, d.CloudProviderName)
		assert.False(t, d.IsCloudHosted())
	})

	t.Run("cloud hosted model keeps id but not name", func(t *testing.T) {
		m := EmbeddingModel{
			ModelName:       "text-embedding-3-small",
			ModelDim:        1536,
			CloudProviderID: int64Ptr(7),
			CloudProvider:   &CloudEmbeddingProvider{ID: 7, Name: "openai"},
		}

		d := EmbeddingModelDetailFromModel(m)

		require.NotNil(t, d.CloudProviderID)
		assert.Equal(t, int64(7), *d.CloudProviderID)
		assert.Nil(t, d.CloudProviderName)
		assert.True(t, d.IsCloudHosted())
	})

	t.Run("snapshot is independent of the live record", func(t *testing.T) {
		m := EmbeddingModel{ModelName: "a", ModelDim: 4, QueryPrefix: strPtr("q: "), CloudProviderID: int64Ptr(1)}
		before := EmbeddingModelDetailFromModel(m)

		*m.QueryPrefix = "changed: "
		*m.CloudProviderID = 2
		m.ModelName = "b"
		after := EmbeddingModelDetailFromModel(m)

		assert.Equal(t, "a", before.ModelName)
		assert.Equal(t, "q: ", *before.QueryPrefix)
		assert.Equal(t, int64(1), *before.CloudProviderID)
		assert.Equal(t, "b", after.ModelName)
		assert.NotEqual(t, before, after)
	})
}

func TestEmbeddingModelDetail_Prefixes(t *testing.T) {
	d := EmbeddingModelDetail{QueryPrefix: strPtr("query: "), PassagePrefix: strPtr("passage: ")}
	assert.Equal(t, "query: what", d.QueryText("what"))
	assert.Equal(t, "passage: text", d.PassageText("text"))

	var plain EmbeddingModelDetail
	assert.Equal(t, "what", plain.QueryText("what"))
	assert.Equal(t, "text", plain.PassageText("text"))

	body, ok := d.StripPassagePrefix(d.PassageText("text"))
	assert.True(t, ok)
	assert.Equal(t, "text", body)
	_, ok = d.StripPassagePrefix("text")
	assert.False(t, ok)
	body, ok = plain.StripPassagePrefix("text")
	assert.True(t, ok)
	assert.Equal(t, "text", body)
}

func TestEmbeddingModel_Validate(t *testing.T) {
	assert.NoError(t, EmbeddingModel{ModelName: "m", ModelDim: 3}.Validate())
	assert.ErrorIs(t, EmbeddingModel{ModelDim: 3}.Validate(), ErrMissingRequiredField)
	assert.ErrorIs(t, EmbeddingModel{ModelName: "m"}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, EmbeddingModel{ModelName: "m", ModelDim: 3, Status: "bogus"}.Validate(), ErrInvalidInput)
}

func TestEmbeddingModelStatus_IsValid(t *testing.T) {
	for _, s := range []EmbeddingModelStatus{EmbeddingModelPresent, EmbeddingModelFuture, EmbeddingModelPast} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, EmbeddingModelStatus("").IsValid())
}
