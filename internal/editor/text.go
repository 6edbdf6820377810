// Package editor implements the offline content manager: importing and
// merging scenario and template sources (JSON or CSV) into the two
// canonical documents the console consumes. It edits raw documents, not
// normalized records, so everything here works on decoded JSON values.
package editor

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText coerces any decoded JSON value to an NFKC-normalized
// string. Sheet exports arrive with full-width punctuation and styled
// characters; NFKC folds those before any comparison or storage.
func NormalizeText(value any) string {
	return norm.NFKC.String(stringify(value))
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// ParseJSONText parses a JSON value embedded in a text cell. It tolerates
// blank and malformed input by reporting ok=false.
func ParseJSONText(text string) (any, bool) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, false
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false
	}
	return value, true
}

// ConvertToStringArray flattens a value into trimmed non-empty strings.
// Empty-container artifacts ("{}", "[]") left behind by sheet exports are
// dropped.
func ConvertToStringArray(value any) []string {
	var items []any
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		items = v
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			items = append(items, v[k])
		}
	default:
		items = []any{value}
	}

	var out []string
	for _, item := range items {
		text := strings.TrimSpace(NormalizeText(item))
		if text == "" || text == "{}" || text == "[]" {
			continue
		}
		out = append(out, text)
	}
	return out
}

// UniqueTrimmedStringArray deduplicates case-insensitively, preserving the
// first-seen spelling and order.
func UniqueTrimmedStringArray(value any) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, item := range ConvertToStringArray(value) {
		text := strings.TrimSpace(NormalizeText(item))
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, text)
	}
	return out
}

var quotedItemRe = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)
var listSplitRe = regexp.MustCompile(`[,\n\r]+`)

// ParseListLikeText extracts a string list from a free-form cell: proper
// JSON first, then quoted fragments, then a bare comma/newline split.
func ParseListLikeText(text string) []string {
	raw := strings.TrimSpace(NormalizeText(text))
	if raw == "" || raw == "[]" {
		return nil
	}

	if parsed, ok := ParseJSONText(raw); ok {
		return ConvertToStringArray(parsed)
	}

	if matches := quotedItemRe.FindAllStringSubmatch(raw, -1); len(matches) > 0 {
		var out []string
		for _, m := range matches {
			val := m[1]
			if val == "" {
				val = m[2]
			}
			if val = strings.TrimSpace(val); val != "" {
				out = append(out, val)
			}
		}
		return out
	}

	fallback := strings.Trim(raw, "[]")
	if fallback == "" {
		return nil
	}
	var out []string
	for _, part := range listSplitRe.Split(fallback, -1) {
		if part = strings.Trim(part, " \"'"); part != "" {
			out = append(out, part)
		}
	}
	return out
}
