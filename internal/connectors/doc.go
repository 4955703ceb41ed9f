// Package connectors provides implementations of the Connector interface
// for document sources. Each connector knows how to fetch raw documents
// from a specific source type and how to watch it for changes.
package connectors
