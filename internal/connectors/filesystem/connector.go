package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-index/internal/logger"
)

// Verify interface implementation.
var _ driven.Connector = (*Connector)(nil)

// ConnectorType is the source name recorded on every document.
const ConnectorType = "filesystem"

const (
	defaultMaxFileSize = 10 << 20
	defaultDebounce    = 100 * time.Millisecond
)

// Connector reads documents from a local directory tree.
type Connector struct {
	rootPath    string
	include     []string
	exclude     []string
	maxFileSize int64
	debounce    time.Duration
	accept      func(mimeType string) bool

	mu      sync.Mutex
	closers []func() error
}

// Option configures a Connector.
type Option func(*Connector)

// WithInclude restricts the connector to files matching any pattern.
func WithInclude(patterns ...string) Option {
	return func(c *Connector) { c.include = append(c.include, patterns...) }
}

// WithExclude skips files matching any pattern.
func WithExclude(patterns ...string) Option {
	return func(c *Connector) { c.exclude = append(c.exclude, patterns...) }
}

// WithMaxFileSize skips files larger than n bytes.
func WithMaxFileSize(n int64) Option {
	return func(c *Connector) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// WithDebounce sets how long Watch waits for a path to go quiet.
func WithDebounce(d time.Duration) Option {
	return func(c *Connector) { c.debounce = d }
}

// WithMIMEFilter skips files whose detected MIME type is not accepted.
func WithMIMEFilter(accept func(mimeType string) bool) Option {
	return func(c *Connector) { c.accept = accept }
}

// New creates a filesystem connector rooted at rootPath.
func New(rootPath string, opts ...Option) *Connector {
	c := &Connector{
		rootPath:    filepath.Clean(rootPath),
		maxFileSize: defaultMaxFileSize,
		debounce:    defaultDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.include) == 0 {
		c.include = []string{"**"}
	}
	return c
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return ConnectorType
}

// RootPath returns the directory being indexed.
func (c *Connector) RootPath() string {
	return c.rootPath
}

// Validate checks that the root is a directory and the patterns parse.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, c.rootPath)
	}
	for _, p := range append(append([]string{}, c.include...), c.exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: bad pattern %q", domain.ErrInvalidInput, p)
		}
	}
	return nil
}

// FullSync emits every matching file under the root.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(docs)

		var failures []error
		seen := make(map[string]struct{})
		fsys := os.DirFS(c.rootPath)
		for _, pattern := range c.include {
			err := doublestar.GlobWalk(fsys, pattern, func(rel string, d fs.DirEntry) error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if d.IsDir() {
					if rel != "." && isHidden(rel) {
						return fs.SkipDir
					}
					return nil
				}
				if _, ok := seen[rel]; ok || !c.matches(rel) {
					return nil
				}
				seen[rel] = struct{}{}

				doc, err := c.readFile(filepath.Join(c.rootPath, filepath.FromSlash(rel)))
				if err != nil {
					failures = append(failures, err)
					return nil
				}
				if doc == nil {
					return nil
				}
				select {
				case docs <- *doc:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
			if err != nil {
				failures = append(failures, err)
				break
			}
		}
		if len(failures) > 0 {
			errs <- errors.Join(failures...)
		}
	}()

	return docs, errs
}

// Read loads a single file. It returns nil without error when the file
// is filtered out.
func (c *Connector) Read(path string) (*domain.RawDocument, error) {
	rel, err := c.relative(path)
	if err != nil {
		return nil, err
	}
	if !c.matches(rel) {
		return nil, nil
	}
	return c.readFile(path)
}

// Close stops any running watchers.
func (c *Connector) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var errs []error
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Connector) readFile(path string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, nil
	}
	if info.Size() > c.maxFileSize {
		logger.Debug("Skipping %s: %d bytes exceeds limit", path, info.Size())
		return nil, nil
	}
	mimeType := detectMIMEType(path)
	if c.accept != nil && !c.accept(mimeType) {
		logger.Debug("Skipping %s: unsupported type %s", path, mimeType)
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &domain.RawDocument{
		Source:     ConnectorType,
		URI:        path,
		MIMEType:   mimeType,
		Content:    content,
		ModifiedAt: info.ModTime().UTC(),
	}, nil
}

// matches reports whether a slash-separated path relative to the root
// passes the hidden, include and exclude filters.
func (c *Connector) matches(rel string) bool {
	if isHidden(rel) {
		return false
	}
	for _, p := range c.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	for _, p := range c.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (c *Connector) relative(path string) (string, error) {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", domain.ErrInvalidInput, path, c.rootPath)
	}
	return filepath.ToSlash(rel), nil
}

// isHidden reports whether any element of a slash-separated path starts
// with a dot.
func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

var knownTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".rst":      "text/x-rst",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".js":       "text/javascript",
	".ts":       "text/typescript",
	".json":     "application/json",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".sh":       "text/x-shellscript",
	".bash":     "text/x-shellscript",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".csv":      "text/csv",
}

// detectMIMEType maps a file extension to a MIME type without parameters.
func detectMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return "text/plain"
	}
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if media, _, err := mime.ParseMediaType(t); err == nil {
			return media
		}
		return t
	}
	return "application/octet-stream"
}
