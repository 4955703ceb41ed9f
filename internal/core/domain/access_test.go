package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentAccess_ToACL(t *testing.T) {
	tests := []struct {
		name   string
		access DocumentAccess
		want   []string
	}{
		{
			name:   "public only",
			access: PublicAccess(),
			want:   []string{ACLPublic},
		},
		{
			name:   "empty access",
			access: DocumentAccess{},
			want:   []string{},
		},
		{
			name: "mixed principals are sorted and de-duplicated",
			access: DocumentAccess{
				UserEmails:           []string{"Ann@Example.com"},
				ExternalUserEmails:   []string{"ann@example.com", "bob@example.com"},
				UserGroups:           []string{"eng"},
				ExternalUserGroupIDs: []string{"gh-team-1"},
			},
			want: []string{
				"external_group:gh-team-1",
				"group:eng",
				"user_email:ann@example.com",
				"user_email:bob@example.com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.access.ToACL())
		})
	}
}

func TestAccessFromACL(t *testing.T) {
	a := AccessFromACL([]string{"PUBLIC", "group:eng", "user_email:ann@example.com", "external_group:x", "bogus"})
	assert.True(t, a.IsPublic)
	assert.Equal(t, []string{"eng"}, a.UserGroups)
	assert.Equal(t, []string{"ann@example.com"}, a.UserEmails)
	assert.Equal(t, []string{"x"}, a.ExternalUserGroupIDs)
	assert.Nil(t, a.ExternalUserEmails)

	assert.Equal(t, a.ToACL(), AccessFromACL(a.ToACL()).ToACL())
}

func TestDocumentAccess_Clone(t *testing.T) {
	a := DocumentAccess{UserGroups: []string{"eng"}}
	b := a.Clone()
	b.UserGroups[0] = "ops"
	assert.Equal(t, "eng", a.UserGroups[0])
}

func TestVisibleAndInAnySet(t *testing.T) {
	base, _ := NewBaseChunk(0, "", "x", nil, false)
	c, _ := NewDocAwareChunk(base, testDocument(), "", "", "", nil)
	ic, _ := NewIndexChunk(c, ChunkEmbedding{FullEmbedding: Embedding{1}}, nil)

	private := FromIndexChunk(ic, DocumentAccess{UserGroups: []string{"eng"}}, NewDocumentSets("team"), 0)
	public := FromIndexChunk(ic, PublicAccess(), NewDocumentSets(), 0)

	assert.True(t, Visible(public, nil))
	assert.False(t, Visible(private, nil))
	assert.False(t, Visible(private, []string{"group:ops"}))
	assert.True(t, Visible(private, []string{"group:eng"}))

	assert.True(t, InAnySet(private, nil))
	assert.True(t, InAnySet(private, []string{"other", "team"}))
	assert.False(t, InAnySet(public, []string{"team"}))
}
