// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to turn the raw
// bytes of a specific MIME type into a Document with sections.
//
// Normalisers are registered with the Registry at startup.
package normalisers
