// Package catalog owns the two canonical JSON documents the console
// consumes: scenarios.json and templates.json. Both are produced by the
// offline content manager; the catalog re-reads them when they change on
// disk and serves an immutable snapshot to the rest of the service.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"traindeck/internal/scenario"
)

const (
	ScenariosFile = "scenarios.json"
	TemplatesFile = "templates.json"
)

// Template is a reusable canned response, optionally scoped to one company.
type Template struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Content     string `json:"content"`
	Shortcut    string `json:"shortcut,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// Snapshot is one consistent view of the catalog. Keys holds the scenario
// keys in ascending numeric order, the ordering list navigation walks.
type Snapshot struct {
	Scenarios map[string]scenario.Scenario
	Keys      []string
	Templates []Template
}

// Catalog loads and watches the data folder. Reads are lock-free against
// the current snapshot; reloads swap the snapshot wholesale.
type Catalog struct {
	dir string
	log *zap.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// New creates a catalog over the given data folder.
func New(dir string, log *zap.Logger) *Catalog {
	return &Catalog{dir: dir, log: log}
}

// Snapshot returns the current catalog view.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Load re-reads both documents and swaps the snapshot. A missing file is an
// empty document; a malformed document keeps the previous snapshot of that
// document rather than dropping it mid-session.
func (c *Catalog) Load() error {
	scenariosRaw, err := readOptional(filepath.Join(c.dir, ScenariosFile))
	if err != nil {
		return err
	}
	templatesRaw, err := readOptional(filepath.Join(c.dir, TemplatesFile))
	if err != nil {
		return err
	}

	var snap Snapshot
	if scenariosDocumentValid(scenariosRaw) {
		scenarios := scenario.Normalize(scenariosRaw)
		snap.Scenarios = scenarios
		snap.Keys = scenario.SortedKeys(scenarios)
	} else {
		c.mu.RLock()
		snap.Scenarios = c.snap.Scenarios
		snap.Keys = c.snap.Keys
		c.mu.RUnlock()
		c.log.Warn("scenarios document malformed, keeping previous scenarios",
			zap.String("file", ScenariosFile))
	}

	templates, err := parseTemplates(templatesRaw)
	if err != nil {
		c.mu.Lock()
		snap.Templates = c.snap.Templates
		c.snap = snap
		c.mu.Unlock()
		c.log.Warn("templates document malformed, keeping previous templates",
			zap.String("file", TemplatesFile), zap.Error(err))
		return nil
	}
	snap.Templates = templates

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.log.Info("catalog loaded",
		zap.Int("scenarios", len(snap.Scenarios)),
		zap.Int("templates", len(snap.Templates)))
	return nil
}

// scenariosDocumentValid accepts the shapes the normalizer recognizes: a
// missing/empty file, or a JSON object or array top level. Anything else is
// a malformed write, not an intentionally empty document.
func scenariosDocumentValid(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return true
	}
	var doc any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return false
	}
	switch doc.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func readOptional(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

// parseTemplates accepts the canonical {"templates": [...]} document and
// the bare-array form older exports used.
func parseTemplates(raw []byte) ([]Template, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var doc struct {
		Templates []Template `json:"templates"`
	}
	if err := json.Unmarshal(raw, &doc); err == nil && doc.Templates != nil {
		return doc.Templates, nil
	}

	var bare []Template
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}
	return nil, fmt.Errorf("unrecognized templates document shape")
}
