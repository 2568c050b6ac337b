// Package curriculum holds the topic pools questions are generated from.
package curriculum

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-kids/internal/domain"
)

//go:embed topics.yaml
var defaultTopicsYAML []byte

// Loader loads and caches topic pools. The embedded pools are always loaded;
// YAML files under rootDir replace pools with the same subject and profile.
type Loader struct {
	rootDir string
	pools   map[poolKey][]string
	mu      sync.RWMutex
}

// NewLoader creates a loader. An empty rootDir uses only the embedded pools.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		pools:   make(map[poolKey][]string),
	}

	if err := l.loadReader(bytes.NewReader(defaultTopicsYAML), "embedded"); err != nil {
		return nil, fmt.Errorf("loading embedded topics: %w", err)
	}
	if rootDir != "" {
		if err := l.loadDir(); err != nil {
			return nil, fmt.Errorf("loading curriculum: %w", err)
		}
	}

	slog.Info("curriculum loaded", "pools", len(l.pools), "root", rootDir)
	return l, nil
}

// RandomTopic picks a topic for the subject and profile, falling back to the
// subject's shared pool.
func (l *Loader) RandomTopic(subject domain.Subject, profile domain.Profile) (string, bool) {
	topics := l.Topics(subject, profile)
	if len(topics) == 0 {
		return "", false
	}
	return topics[rand.IntN(len(topics))], true
}

// Topics returns the pool used for the subject and profile.
func (l *Loader) Topics(subject domain.Subject, profile domain.Profile) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if t, ok := l.pools[poolKey{subject, string(profile)}]; ok {
		return append([]string(nil), t...)
	}
	return append([]string(nil), l.pools[poolKey{subject, AnyProfile}]...)
}

func (l *Loader) loadDir() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := l.loadReader(f, path); err != nil {
			slog.Warn("skipping invalid topic YAML", "path", path, "error", err)
		}
		return nil
	})
}

func (l *Loader) loadReader(r io.Reader, source string) error {
	var file poolFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return fmt.Errorf("decode %s: %w", source, err)
	}

	for i, p := range file.Pools {
		if !p.Subject.Valid() {
			return fmt.Errorf("%s: pool %d: unknown subject %q", source, i, p.Subject)
		}
		profile := p.Profile
		if profile == "" {
			profile = AnyProfile
		}
		if profile != AnyProfile {
			parsed, err := domain.ParseProfile(profile)
			if err != nil {
				return fmt.Errorf("%s: pool %d: %w", source, i, err)
			}
			profile = string(parsed)
		}
		if len(p.Topics) == 0 {
			return fmt.Errorf("%s: pool %d: no topics", source, i)
		}

		l.mu.Lock()
		l.pools[poolKey{p.Subject, profile}] = p.Topics
		l.mu.Unlock()
	}
	return nil
}
