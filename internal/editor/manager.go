package editor

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"traindeck/internal/catalog"
)

// Manager edits the canonical documents inside one data folder.
type Manager struct {
	Dir string
}

func (m *Manager) ScenariosPath() string { return filepath.Join(m.Dir, catalog.ScenariosFile) }

func (m *Manager) TemplatesPath() string { return filepath.Join(m.Dir, catalog.TemplatesFile) }

// ImportScenarios merges a JSON or CSV source (picked by extension) into
// scenarios.json and reports how many records were added and updated.
func (m *Manager) ImportScenarios(sourcePath string) (added, updated int, err error) {
	existingDoc, err := ReadJSONDocument(m.ScenariosPath())
	if err != nil {
		return 0, 0, err
	}
	existing := ContainerToList(existingDoc)

	var incoming []any
	if strings.EqualFold(filepath.Ext(sourcePath), ".csv") {
		rows, err := readCSVRows(sourcePath)
		if err != nil {
			return 0, 0, err
		}
		for _, row := range rows {
			incoming = append(incoming, ScenarioFromCSVRow(row))
		}
	} else {
		doc, err := ReadJSONDocument(sourcePath)
		if err != nil {
			return 0, 0, err
		}
		incoming = ContainerToList(doc)
		if len(incoming) == 0 {
			return 0, 0, errors.New("no scenarios found in source file")
		}
	}

	merged := MergeByID(existing, incoming)
	records := make([]any, 0, len(merged.Scenarios))
	for _, record := range merged.Scenarios {
		records = append(records, record)
	}
	if err := WriteJSONDocument(m.ScenariosPath(), map[string]any{"scenarios": records}); err != nil {
		return 0, 0, err
	}
	return merged.Added, merged.Updated, nil
}

// ImportTemplates replaces templates.json from a JSON or CSV source and
// reports how many templates the document now holds.
func (m *Manager) ImportTemplates(sourcePath string) (int, error) {
	if strings.EqualFold(filepath.Ext(sourcePath), ".csv") {
		rows, err := readCSVRows(sourcePath)
		if err != nil {
			return 0, err
		}
		templates := []catalog.Template{}
		for _, row := range rows {
			if tpl, ok := TemplateFromCSVRow(row); ok {
				templates = append(templates, tpl)
			}
		}
		if err := WriteJSONDocument(m.TemplatesPath(), map[string]any{"templates": templates}); err != nil {
			return 0, err
		}
		return len(templates), nil
	}

	doc, err := ReadJSONDocument(sourcePath)
	if err != nil {
		return 0, err
	}
	if err := WriteJSONDocument(m.TemplatesPath(), doc); err != nil {
		return 0, err
	}
	return TemplateCount(doc), nil
}

// ClearScenarios resets scenarios.json to an empty container.
func (m *Manager) ClearScenarios() error {
	return WriteJSONDocument(m.ScenariosPath(), map[string]any{"scenarios": []any{}})
}

// ClearTemplates resets templates.json to an empty container.
func (m *Manager) ClearTemplates() error {
	return WriteJSONDocument(m.TemplatesPath(), map[string]any{"templates": []any{}})
}

// Stats reports the item count in each document.
func (m *Manager) Stats() (scenarios, templates int, err error) {
	scenariosDoc, err := ReadJSONDocument(m.ScenariosPath())
	if err != nil {
		return 0, 0, err
	}
	templatesDoc, err := ReadJSONDocument(m.TemplatesPath())
	if err != nil {
		return 0, 0, err
	}
	return ScenarioCount(scenariosDoc), TemplateCount(templatesDoc), nil
}

// ReadJSONDocument reads a JSON file, treating a missing or empty file as
// an empty document.
func ReadJSONDocument(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// WriteJSONDocument writes a document with two-space indentation, via a
// temp file and rename.
func WriteJSONDocument(path string, doc any) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// ScenarioCount counts scenarios in a document, applying the same
// single-message-array rule the console's normalizer uses.
func ScenarioCount(doc any) int {
	switch v := doc.(type) {
	case nil:
		return 0
	case []any:
		return countScenarioList(v)
	case map[string]any:
		switch inner := v["scenarios"].(type) {
		case []any:
			return countScenarioList(inner)
		case map[string]any:
			return len(inner)
		}
	}
	return 0
}

func countScenarioList(list []any) int {
	if len(list) == 0 {
		return 0
	}
	allMessages := true
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok || !looksLikeMessage(obj) {
			allMessages = false
			break
		}
	}
	if allMessages {
		return 1
	}
	return len(list)
}

func looksLikeMessage(m map[string]any) bool {
	for _, key := range []string{"message_text", "message_type", "content", "role"} {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

// TemplateCount counts templates in either document form.
func TemplateCount(doc any) int {
	switch v := doc.(type) {
	case []any:
		return len(v)
	case map[string]any:
		if inner, ok := v["templates"].([]any); ok {
			return len(inner)
		}
	}
	return 0
}

// readCSVRows reads a header-keyed CSV file, tolerating a UTF-8 BOM and
// ragged rows.
func readCSVRows(path string) ([]map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(record) {
				row[strings.TrimSpace(column)] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
