package spec

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/pyneda/openeoct/pkg/contract"
)

// DefaultPattern names contract files inside a spec directory. %s is replaced by the version.
const DefaultPattern = "openeo-api-%s"

var extensions = []string{".json", ".yaml", ".yml"}

// Store serves contract documents by version from a directory.
// Loaded documents are cached and shared between callers.
type Store struct {
	dir     string
	pattern string

	mu   sync.RWMutex
	docs map[string]*Document
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithPattern overrides the file name pattern, which must contain a single %s.
func WithPattern(pattern string) StoreOption {
	return func(s *Store) {
		if pattern != "" {
			s.pattern = pattern
		}
	}
}

// NewStore creates a store reading from dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:     dir,
		pattern: DefaultPattern,
		docs:    make(map[string]*Document),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the directory the store reads from.
func (s *Store) Dir() string {
	return s.dir
}

// Load returns the contract for version, loading and caching it on first use.
func (s *Store) Load(version contract.Version) (*Document, error) {
	if version.IsZero() {
		return nil, fmt.Errorf("%w: no version given", ErrSpecNotFound)
	}
	key := version.String()

	s.mu.RLock()
	doc, ok := s.docs[key]
	s.mu.RUnlock()
	if ok {
		return doc, nil
	}

	path, err := s.locate(key)
	if err != nil {
		return nil, err
	}
	doc, err = LoadFile(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another loader may have won the race, keep the first one.
	if existing, ok := s.docs[key]; ok {
		return existing, nil
	}
	s.docs[key] = doc
	return doc, nil
}

func (s *Store) locate(version string) (string, error) {
	base := filepath.Join(s.dir, fmt.Sprintf(s.pattern, version))
	for _, ext := range extensions {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: version %s in %s", ErrSpecNotFound, version, s.dir)
}

// Versions lists the contract versions available in the directory, ascending.
func (s *Store) Versions() ([]contract.Version, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading spec directory %s: %w", s.dir, err)
	}
	prefix, suffix, _ := strings.Cut(s.pattern, "%s")
	re := regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + "(.+)" + regexp.QuoteMeta(suffix) + "$")

	seen := make(map[string]contract.Version)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if !isSpecExtension(ext) {
			continue
		}
		m := re.FindStringSubmatch(name[:len(name)-len(ext)])
		if m == nil {
			continue
		}
		v, err := contract.ParseVersion(m[1])
		if err != nil {
			continue
		}
		seen[v.String()] = v
	}

	out := make([]contract.Version, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out, nil
}

func isSpecExtension(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
