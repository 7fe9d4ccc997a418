package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// widgets is a small target shaped like the built-in item catalogue.
func widgetsConfig() ImportTypeConfig {
	return ImportTypeConfig{
		ID:    "widgets",
		Label: "Widgets",
		Fields: []FieldSpec{
			{Key: "name", Label: "Name", Required: true},
			{Key: "email", Label: "Email"},
			{Key: "type", Label: "Type", Required: true},
			{Key: "sale_price", Label: "Sale Price", Type: FieldNumeric},
			{Key: "quantity", Label: "Quantity", Type: FieldNumeric},
		},
		TemplateRows: []map[string]any{
			{"name": "Desk Lamp", "email": "ops@example.com", "type": "goods", "sale_price": 24.5, "quantity": 10},
			{"name": "Setup Fee", "type": "service", "sale_price": "100"},
		},
	}
}

// registerWidgets installs the widgets target for the duration of the test.
func registerWidgets(t *testing.T) ImportTypeConfig {
	t.Helper()
	Clear()
	cfg := widgetsConfig()
	Register(cfg)
	t.Cleanup(Clear)
	return cfg
}

// stubParser returns a fixed sheet or error.
type stubParser struct {
	sheet Sheet
	err   error
}

func (p stubParser) Parse(string, []byte) (Sheet, error) {
	return p.sheet, p.err
}

// recordingCreator records every row it receives and fails the 1-based
// submissions listed in failOn.
type recordingCreator struct {
	mu     sync.Mutex
	failOn map[int]bool
	rows   []CanonicalRow
	block  chan struct{} // when set, each call waits for a receive
}

func (c *recordingCreator) Create(ctx context.Context, target string, row CanonicalRow) (string, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, row)
	n := len(c.rows)
	if c.failOn[n] {
		return "", fmt.Errorf("duplicate name %q", row.Text("name"))
	}
	return fmt.Sprintf("%s-%d", target, n), nil
}

func (c *recordingCreator) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// memRecorder keeps history records in memory.
type memRecorder struct {
	mu   sync.Mutex
	runs []ImportRun
}

func (r *memRecorder) RecordRun(_ context.Context, run ImportRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *memRecorder) all() []ImportRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ImportRun(nil), r.runs...)
}

// widgetRows builds n valid raw rows keyed by the template headers.
func widgetRows(n int) []RawRow {
	rows := make([]RawRow, n)
	for i := range rows {
		rows[i] = RawRow{
			"Name":       fmt.Sprintf("Widget %d", i+1),
			"Type":       "goods",
			"Sale Price": fmt.Sprintf("%d.50", i+1),
		}
	}
	return rows
}

// parsed validates raw rows against the widgets target with its template headers.
func parsed(cfg ImportTypeConfig, rows []RawRow) []ParsedRow {
	mapping := ColumnMapping{"name": "Name", "type": "Type", "sale_price": "Sale Price"}
	return Validate(rows, mapping, cfg)
}
