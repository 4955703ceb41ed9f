package domain

import (
	"slices"
	"strings"
)

// ACL entry prefixes used by the index writer for access filtering.
const (
	ACLPublic              = "PUBLIC"
	ACLUserEmailPrefix     = "user_email:"
	ACLGroupPrefix         = "group:"
	ACLExternalGroupPrefix = "external_group:"
)

// DocumentAccess enumerates the principals that may retrieve a document.
// It is resolved once per document and copied into each of its chunks.
type DocumentAccess struct {
	// UserEmails are users granted access directly.
	UserEmails []string

	// UserGroups are internal group names granted access.
	UserGroups []string

	// ExternalUserEmails are users granted access in the source system.
	ExternalUserEmails []string

	// ExternalUserGroupIDs are source-system group ids granted access.
	ExternalUserGroupIDs []string

	// IsPublic makes the document visible to everyone.
	IsPublic bool
}

// PublicAccess returns access that allows everyone.
func PublicAccess() DocumentAccess {
	return DocumentAccess{IsPublic: true}
}

// ToACL renders the access as sorted, de-duplicated ACL entries.
// Internal and external emails share the user_email prefix.
func (a DocumentAccess) ToACL() []string {
	acl := make([]string, 0, len(a.UserEmails)+len(a.ExternalUserEmails)+len(a.UserGroups)+len(a.ExternalUserGroupIDs)+1)
	for _, e := range a.UserEmails {
		acl = append(acl, ACLUserEmailPrefix+strings.ToLower(e))
	}
	for _, e := range a.ExternalUserEmails {
		acl = append(acl, ACLUserEmailPrefix+strings.ToLower(e))
	}
	for _, g := range a.UserGroups {
		acl = append(acl, ACLGroupPrefix+g)
	}
	for _, g := range a.ExternalUserGroupIDs {
		acl = append(acl, ACLExternalGroupPrefix+g)
	}
	if a.IsPublic {
		acl = append(acl, ACLPublic)
	}
	slices.Sort(acl)
	return slices.Compact(acl)
}

// Clone returns a deep copy.
func (a DocumentAccess) Clone() DocumentAccess {
	return DocumentAccess{
		UserEmails:           slices.Clone(a.UserEmails),
		UserGroups:           slices.Clone(a.UserGroups),
		ExternalUserEmails:   slices.Clone(a.ExternalUserEmails),
		ExternalUserGroupIDs: slices.Clone(a.ExternalUserGroupIDs),
		IsPublic:             a.IsPublic,
	}
}

// AccessFromACL parses ACL entries back into a DocumentAccess.
// External emails cannot be told apart from internal ones and come back
// as UserEmails. Unknown entries are ignored.
func AccessFromACL(acl []string) DocumentAccess {
	var a DocumentAccess
	for _, entry := range acl {
		switch {
		case entry == ACLPublic:
			a.IsPublic = true
		case strings.HasPrefix(entry, ACLUserEmailPrefix):
			a.UserEmails = append(a.UserEmails, strings.TrimPrefix(entry, ACLUserEmailPrefix))
		case strings.HasPrefix(entry, ACLGroupPrefix):
			a.UserGroups = append(a.UserGroups, strings.TrimPrefix(entry, ACLGroupPrefix))
		case strings.HasPrefix(entry, ACLExternalGroupPrefix):
			a.ExternalUserGroupIDs = append(a.ExternalUserGroupIDs, strings.TrimPrefix(entry, ACLExternalGroupPrefix))
		}
	}
	return a
}
