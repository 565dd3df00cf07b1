// Package prompts provides a loader for externalized LLM prompt templates.
// Prompts are stored as JSON files and embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Library loads prompt files from a filesystem and caches the parsed result.
// A Library is safe for concurrent use.
type Library struct {
	fsys fs.FS

	mu    sync.RWMutex
	cache map[string]map[string]string
}

// NewLibrary creates a library over fsys. Files are JSON objects of key → template.
func NewLibrary(fsys fs.FS) *Library {
	return &Library{fsys: fsys, cache: make(map[string]map[string]string)}
}

// Embedded creates a library over the prompt files compiled into the binary
func Embedded() *Library {
	return NewLibrary(promptFiles)
}

// Get retrieves a prompt by filename and key.
// The filename should not include the path (e.g., "report.json").
// Returns an error if the file or key is not found.
func (l *Library) Get(filename, key string) (string, error) {
	prompts, err := l.loadFile(filename)
	if err != nil {
		return "", err
	}

	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}

	return prompt, nil
}

// Format replaces template placeholders in the form {{.Key}} with values from data.
// Substitution is a single left-to-right pass: inserted values are never rescanned, so
// placeholder-looking text inside a value is kept verbatim.
func Format(template string, data map[string]string) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, "{{."+key+"}}", data[key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// loadFile loads and caches a prompt file.
func (l *Library) loadFile(filename string) (map[string]string, error) {
	l.mu.RLock()
	if prompts, exists := l.cache[filename]; exists {
		l.mu.RUnlock()
		return prompts, nil
	}
	l.mu.RUnlock()

	data, err := fs.ReadFile(l.fsys, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	l.mu.Lock()
	l.cache[filename] = prompts
	l.mu.Unlock()

	return prompts, nil
}
