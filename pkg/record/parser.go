package record

import (
	"regexp"
	"sort"
	"strings"
)

// TemplateMinLines is how many colon-bearing lines make a text block a
// filled-in template rather than free text.
const TemplateMinLines = 5

var linePattern = regexp.MustCompile(`^([^:]+):(.*)$`)

// Parse reads "key: value" lines. Lines without a colon, or with nothing
// before the first colon, are skipped. Only the first colon separates key
// from value, both sides are trimmed, and a repeated key keeps its last
// value. Keys outside the known field set are kept.
func Parse(text string) Record {
	rec := Record{}
	for _, line := range strings.Split(text, "\n") {
		match := linePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		key := strings.TrimSpace(match[1])
		if key == "" {
			continue
		}
		rec[key] = strings.TrimSpace(match[2])
	}
	return rec
}

// IsTemplate reports whether text can be parsed locally. Anything below the
// threshold goes to the AI parse collaborator instead.
func IsTemplate(text string) bool {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, ":") {
			count++
			if count >= TemplateMinLines {
				return true
			}
		}
	}
	return false
}

// Format renders a record back into editable text: one "key: value" line per
// non-empty value, canonical fields first, then the remaining keys sorted.
func Format(r Record) string {
	var lines []string
	seen := make(map[string]bool, len(CanonicalFields))
	for _, field := range CanonicalFields {
		seen[field] = true
		if v := strings.TrimSpace(r[field]); v != "" {
			lines = append(lines, field+": "+v)
		}
	}

	var extra []string
	for k, v := range r {
		if !seen[k] && strings.TrimSpace(v) != "" {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		lines = append(lines, k+": "+strings.TrimSpace(r[k]))
	}
	return strings.Join(lines, "\n")
}
