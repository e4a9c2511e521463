package record

import (
	"strings"
)

// Merge overlays manual onto auto. A manual value wins only when it is
// non-empty after trimming; neither input is modified.
func Merge(auto, manual Record) Record {
	merged := auto.Clone()
	for k, v := range manual {
		if strings.TrimSpace(v) != "" {
			merged[k] = v
		}
	}
	return merged
}

// Serialize lays r out in CanonicalFields order, with "" for absent fields.
// The result always has len(CanonicalFields) entries.
func Serialize(r Record) []string {
	row := make([]string, len(CanonicalFields))
	for i, field := range CanonicalFields {
		row[i] = r[field]
	}
	return row
}

// Row is Serialize(Merge(auto, manual)).
func Row(auto, manual Record) []string {
	return Serialize(Merge(auto, manual))
}
