package domain

import "strings"

// EmbeddingModelStatus is the lifecycle position of a model configuration.
type EmbeddingModelStatus string

// Model statuses. During a model swap the new model is Future until it is
// promoted, after which the old one becomes Past.
const (
	EmbeddingModelPresent EmbeddingModelStatus = "present"
	EmbeddingModelFuture  EmbeddingModelStatus = "future"
	EmbeddingModelPast    EmbeddingModelStatus = "past"
)

// IsValid returns true if the status is recognised.
func (s EmbeddingModelStatus) IsValid() bool {
	switch s {
	case EmbeddingModelPresent, EmbeddingModelFuture, EmbeddingModelPast:
		return true
	default:
		return false
	}
}

// CloudEmbeddingProvider is an externally hosted embedding provider.
type CloudEmbeddingProvider struct {
	ID     int64
	Name   string
	APIKey string
}

// EmbeddingModel is the live, mutable embedding model configuration record.
type EmbeddingModel struct {
	ID            int64
	ModelName     string
	ModelDim      int
	Normalize     bool
	QueryPrefix   *string
	PassagePrefix *string
	Status        EmbeddingModelStatus

	// CloudProviderID is set only for externally hosted models.
	CloudProviderID *int64

	// CloudProvider is the loaded provider relation, if any.
	CloudProvider *CloudEmbeddingProvider
}

// Validate checks the fields needed to embed with this model.
func (m EmbeddingModel) Validate() error {
	if m.ModelName == "" {
		return ErrMissingRequiredField
	}
	if m.ModelDim <= 0 {
		return ErrInvalidInput
	}
	if m.Status != "" && !m.Status.IsValid() {
		return ErrInvalidInput
	}
	return nil
}

// EmbeddingModelDetail is an immutable snapshot of an embedding model
// configuration, attached to embedding and query requests.
type EmbeddingModelDetail struct {
	ModelName         string
	ModelDim          int
	Normalize         bool
	QueryPrefix       *string
	PassagePrefix     *string
	CloudProviderID   *int64
	CloudProviderName *string
}

// EmbeddingModelDetailFromModel snapshots a live model configuration.
// CloudProviderName is left unset even when a provider is present; only
// the id is carried over.
func EmbeddingModelDetailFromModel(m EmbeddingModel) EmbeddingModelDetail {
	return EmbeddingModelDetail{
		ModelName:       m.ModelName,
		ModelDim:        m.ModelDim,
		Normalize:       m.Normalize,
		QueryPrefix:     cloneString(m.QueryPrefix),
		PassagePrefix:   cloneString(m.PassagePrefix),
		CloudProviderID: cloneInt64(m.CloudProviderID),
	}
}

// QueryText prepends the query prefix, if any.
func (d EmbeddingModelDetail) QueryText(query string) string {
	if d.QueryPrefix == nil {
		return query
	}
	return *d.QueryPrefix + query
}

// PassageText prepends the passage prefix, if any.
func (d EmbeddingModelDetail) PassageText(passage string) string {
	if d.PassagePrefix == nil {
		return passage
	}
	return *d.PassagePrefix + passage
}

// StripPassagePrefix removes the prefix PassageText adds.
// It reports false when text does not carry the prefix.
func (d EmbeddingModelDetail) StripPassagePrefix(text string) (string, bool) {
	if d.PassagePrefix == nil {
		return text, true
	}
	return strings.CutPrefix(text, *d.PassagePrefix)
}

// IsCloudHosted reports whether the model runs at an external provider.
func (d EmbeddingModelDetail) IsCloudHosted() bool {
	return d.CloudProviderID != nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
