package core

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	registry   = make(map[string]ImportTypeConfig)
	registryMu sync.RWMutex
)

// Register adds an import target to the registry.
// Panics if a target with the same ID is already registered or a field key repeats.
func Register(cfg ImportTypeConfig) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[cfg.ID]; exists {
		panic(fmt.Sprintf("import target already registered: %s", cfg.ID))
	}

	seen := make(map[string]bool, len(cfg.Fields))
	for i, f := range cfg.Fields {
		if seen[f.Key] {
			panic(fmt.Sprintf("import target %s: duplicate field %s", cfg.ID, f.Key))
		}
		seen[f.Key] = true
		// Label doubles as the template header, so it cannot be blank
		if f.Label == "" {
			cfg.Fields[i].Label = f.Key
		}
	}

	registry[cfg.ID] = cfg
}

// GetConfig returns an import target by ID.
func GetConfig(id string) (ImportTypeConfig, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	cfg, ok := registry[id]
	if !ok {
		return ImportTypeConfig{}, &UnknownTargetError{Target: id}
	}
	return cfg, nil
}

// All returns all registered import targets sorted by ID.
func All() []ImportTypeConfig {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ImportTypeConfig, 0, len(registry))
	for _, cfg := range registry {
		result = append(result, cfg)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// TargetCount returns the number of registered targets.
func TargetCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered targets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]ImportTypeConfig)
}

// Template is the tabular form of a target's sample rows.
// Headers use FieldSpec.Label, the same convention the mapper expects.
type Template struct {
	Target  string
	Headers []string
	Types   []FieldType
	Rows    [][]string
}

// GenerateTemplate builds the downloadable template for a target.
func GenerateTemplate(id string) (Template, error) {
	cfg, err := GetConfig(id)
	if err != nil {
		return Template{}, err
	}
	return BuildTemplate(cfg), nil
}

// BuildTemplate renders a config's template rows in schema order.
func BuildTemplate(cfg ImportTypeConfig) Template {
	t := Template{
		Target:  cfg.ID,
		Headers: make([]string, len(cfg.Fields)),
		Types:   make([]FieldType, len(cfg.Fields)),
		Rows:    make([][]string, 0, len(cfg.TemplateRows)),
	}
	for i, f := range cfg.Fields {
		t.Headers[i] = f.Label
		t.Types[i] = f.Type
	}

	for _, sample := range cfg.TemplateRows {
		row := make([]string, len(cfg.Fields))
		for i, f := range cfg.Fields {
			row[i] = templateCell(sample[f.Key])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// templateCell formats a sample value the way a spreadsheet would display it.
func templateCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return decimal.NewFromFloat(x).String()
	case decimal.Decimal:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
