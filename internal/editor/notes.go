package editor

import (
	"regexp"
	"strings"
)

var (
	leadingNonAlnumRe = regexp.MustCompile(`^[^a-z0-9]+`)
	nonAlnumRunRe     = regexp.MustCompile(`[^a-z0-9]+`)

	sendToCSKeyRe       = regexp.MustCompile(`send.*cs`)
	escalateKeyRe       = regexp.MustCompile(`^escalate$|^escalation$|escalat`)
	toneKeyRe           = regexp.MustCompile(`^tone$`)
	templateKeyRe       = regexp.MustCompile(`template`)
	dosAndDontsKeyRe    = regexp.MustCompile(`do.*and.*don|dos_and_donts|don_ts|donts`)
	driveToPurchaseRe   = regexp.MustCompile(`drive.*purchase`)
	promoKeyRe          = regexp.MustCompile(`promo`)
	movedHeadingItemRe  = regexp.MustCompile(`^\*{0,2}\s*#\s*(.+)$`)
	sendToCSContentRe   = regexp.MustCompile(`(?i)send\s*to\s*cs|cssupport@|post-purchase|shipping inquiries on a current order`)
)

// NormalizeGuidelineCategoryKey canonicalizes a free-form guideline heading
// into one of the category keys the console renders. Headings came from
// years of differently-formatted sheets, hence the pattern pile.
func NormalizeGuidelineCategoryKey(heading string) string {
	key := strings.ToLower(strings.TrimSpace(NormalizeText(heading)))
	if key == "" {
		return "important"
	}
	key = leadingNonAlnumRe.ReplaceAllString(key, "")
	key = strings.ReplaceAll(key, "&", "and")
	key = strings.Trim(nonAlnumRunRe.ReplaceAllString(key, "_"), "_")

	switch {
	case sendToCSKeyRe.MatchString(key):
		return "send_to_cs"
	case escalateKeyRe.MatchString(key):
		return "escalate"
	case toneKeyRe.MatchString(key):
		return "tone"
	case templateKeyRe.MatchString(key):
		return "templates"
	case dosAndDontsKeyRe.MatchString(key):
		return "dos_and_donts"
	case driveToPurchaseRe.MatchString(key):
		return "drive_to_purchase"
	case promoKeyRe.MatchString(key):
		return "promo_and_exclusions"
	}
	if key == "" {
		return "important"
	}
	return key
}

// hasStyledMathChars detects the Unicode "mathematical alphanumeric"
// block some sheets use for pseudo-bold text.
func hasStyledMathChars(text string) bool {
	for _, r := range text {
		if r >= 0x1D400 && r <= 0x1D7FF {
			return true
		}
	}
	return false
}

// ParseCompanyNotes splits a COMPANY_NOTES cell into categorized guideline
// lists. Lines starting with # switch the current category; bullets are
// stripped; pseudo-bold lines are wrapped in markdown bold markers.
func ParseCompanyNotes(notesText string) map[string][]string {
	raw := strings.TrimSpace(NormalizeText(notesText))
	if raw == "" {
		return nil
	}

	notes := map[string][]string{}
	currentKey := "important"
	for _, line := range strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == '\r' }) {
		item := strings.TrimSpace(line)
		if item == "" {
			continue
		}
		if strings.HasPrefix(item, "#") {
			currentKey = NormalizeGuidelineCategoryKey(strings.TrimSpace(strings.TrimLeft(item, "#")))
			continue
		}
		item = strings.TrimSpace(strings.TrimPrefix(item, "•"))
		item = strings.TrimSpace(strings.TrimPrefix(item, "-"))
		if item == "" {
			continue
		}
		if hasStyledMathChars(item) {
			item = "**" + strings.TrimSpace(NormalizeText(item)) + "**"
		}
		notes[currentKey] = append(notes[currentKey], strings.TrimSpace(NormalizeText(item)))
	}

	for key, items := range notes {
		if len(items) == 0 {
			delete(notes, key)
		}
	}
	if len(notes) == 0 {
		return nil
	}
	return notes
}

// NormalizeScenarioNotes canonicalizes a record's notes mapping: category
// keys are normalized, heading items register their category, items that
// clearly belong to send_to_cs migrate there, and every list is deduped.
func NormalizeScenarioNotes(value any) map[string][]string {
	obj, ok := value.(map[string]any)
	if !ok || len(obj) == 0 {
		return map[string][]string{}
	}

	notes := map[string][]string{}
	for rawKey, rawVal := range obj {
		key := NormalizeGuidelineCategoryKey(rawKey)
		if _, exists := notes[key]; !exists {
			notes[key] = []string{}
		}
		for _, item := range ConvertToStringArray(rawVal) {
			text := strings.TrimSpace(NormalizeText(item))
			if text == "" {
				continue
			}
			if m := movedHeadingItemRe.FindStringSubmatch(text); m != nil {
				moved := NormalizeGuidelineCategoryKey(m[1])
				if _, exists := notes[moved]; !exists {
					notes[moved] = []string{}
				}
				continue
			}
			notes[key] = append(notes[key], text)
		}
	}

	if important, ok := notes["important"]; ok {
		var keep []string
		for _, item := range important {
			text := strings.TrimSpace(NormalizeText(item))
			if sendToCSContentRe.MatchString(text) {
				notes["send_to_cs"] = append(notes["send_to_cs"], text)
				continue
			}
			if text == "**" {
				continue
			}
			keep = append(keep, text)
		}
		notes["important"] = keep
	}

	clean := map[string][]string{}
	for key, items := range notes {
		if deduped := UniqueTrimmedStringArray(anySlice(items)); len(deduped) > 0 {
			clean[key] = deduped
		}
	}
	return clean
}

func anySlice(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
