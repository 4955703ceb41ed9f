// Package filesystem implements a connector for local directories.
//
// FullSync walks the root and emits every matching file. Watch uses
// fsnotify to stream created, updated and deleted files. Hidden files and
// directories are always skipped. Include and exclude patterns use
// doublestar syntax relative to the root, e.g. "docs/**/*.md".
package filesystem
