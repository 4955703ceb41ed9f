package filesystem

import "strings"

// ResolveWebURL converts a document URI to a local path for opening.
// Handles file:// URIs and bare paths.
func ResolveWebURL(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
