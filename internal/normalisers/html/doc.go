// Package html provides a Normaliser for HTML documents. Text is split into
// one section per heading; scripts, styles and page chrome are skipped.
package html
