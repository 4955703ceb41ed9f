// Package file provides file-based implementations of driven port interfaces.
//
// ConfigStore keeps settings in a TOML file. Keys use dot notation
// ("chunking.size") and are written back as nested tables.
package file
