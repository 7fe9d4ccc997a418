package core

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ColumnMapping binds canonical field keys to raw column headers.
// A missing key means the field is unmapped.
type ColumnMapping map[string]string

// NormalizeHeader lower-cases s and strips '_', '-' and whitespace.
func NormalizeHeader(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// AutoMap proposes a mapping for every field of cfg, in schema order.
//
// For each field: an exact normalized match wins; otherwise the first header
// whose normalized form contains the normalized key, or is contained in it;
// otherwise the field stays unmapped. Headers that normalize to "" never match.
func AutoMap(headers []string, cfg ImportTypeConfig) ColumnMapping {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	mapping := make(ColumnMapping, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if h, ok := matchHeader(NormalizeHeader(f.Key), headers, normalized); ok {
			mapping[f.Key] = h
		}
	}
	return mapping
}

func matchHeader(key string, headers, normalized []string) (string, bool) {
	if key == "" {
		return "", false
	}
	for i, n := range normalized {
		if n != "" && n == key {
			return headers[i], true
		}
	}
	for i, n := range normalized {
		if n == "" {
			continue
		}
		if strings.Contains(n, key) || strings.Contains(key, n) {
			return headers[i], true
		}
	}
	return "", false
}

// Clone returns an independent copy of the mapping.
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Update binds fieldKey to header, or unbinds it when header is "".
// The same header may be bound to several fields.
func (m ColumnMapping) Update(cfg ImportTypeConfig, fieldKey, header string) error {
	if _, ok := cfg.Field(fieldKey); !ok {
		return &UnknownFieldError{Target: cfg.ID, Field: fieldKey}
	}
	if header == "" {
		delete(m, fieldKey)
		return nil
	}
	m[fieldKey] = header
	return nil
}

// Unmapped returns the field keys of cfg with no bound header, in schema order.
func (m ColumnMapping) Unmapped(cfg ImportTypeConfig) []string {
	var keys []string
	for _, f := range cfg.Fields {
		if _, ok := m[f.Key]; !ok {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Duplicates returns headers bound to more than one field, with the fields
// sorted. Advisory only.
func (m ColumnMapping) Duplicates() map[string][]string {
	byHeader := make(map[string][]string)
	for field, header := range m {
		byHeader[header] = append(byHeader[header], field)
	}
	dups := make(map[string][]string)
	for header, fields := range byHeader {
		if len(fields) > 1 {
			sort.Strings(fields)
			dups[header] = fields
		}
	}
	return dups
}

// Suggestion is a candidate header for an unmapped field.
type Suggestion struct {
	Field   string   `json:"field"`
	Headers []string `json:"headers"`
}

// maxSuggestions caps candidates per field.
const maxSuggestions = 3

// SuggestColumns ranks headers that no field is bound to against each
// unmapped field's key and label. It never changes the mapping.
func SuggestColumns(headers []string, mapping ColumnMapping, cfg ImportTypeConfig) []Suggestion {
	bound := make(map[string]bool, len(mapping))
	for _, h := range mapping {
		bound[h] = true
	}

	var free []string
	for _, h := range headers {
		if !bound[h] && NormalizeHeader(h) != "" {
			free = append(free, h)
		}
	}
	if len(free) == 0 {
		return nil
	}

	var out []Suggestion
	for _, key := range mapping.Unmapped(cfg) {
		f, _ := cfg.Field(key)
		candidates := rankHeaders(free, f)
		if len(candidates) > 0 {
			out = append(out, Suggestion{Field: key, Headers: candidates})
		}
	}
	return out
}

func rankHeaders(free []string, f FieldSpec) []string {
	best := make(map[int]int) // header index -> lowest distance
	for _, term := range []string{f.Key, f.Label} {
		for _, r := range fuzzy.RankFindNormalizedFold(NormalizeHeader(term), normalizeAll(free)) {
			if d, ok := best[r.OriginalIndex]; !ok || r.Distance < d {
				best[r.OriginalIndex] = r.Distance
			}
		}
	}

	idx := make([]int, 0, len(best))
	for i := range best {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool {
		if best[idx[a]] != best[idx[b]] {
			return best[idx[a]] < best[idx[b]]
		}
		return idx[a] < idx[b]
	})
	if len(idx) > maxSuggestions {
		idx = idx[:maxSuggestions]
	}

	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = free[j]
	}
	return out
}

func normalizeAll(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = NormalizeHeader(h)
	}
	return out
}
