package sheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edrees2022/log-and-ledger-sub006/internal/core"
)

// readJSON reads an array of flat objects. Headers are the union of object
// keys in first-seen order; missing keys read as "".
func readJSON(data []byte) (core.Sheet, error) {
	text, err := DecodeText(data)
	if err != nil {
		return core.Sheet{}, err
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return core.Sheet{}, err
	}

	var headers []string
	index := make(map[string]bool)
	var objects []map[string]string

	for dec.More() {
		keys, obj, err := readObject(dec)
		if err != nil {
			return core.Sheet{}, fmt.Errorf("row %d: %w", len(objects)+1, err)
		}
		for _, k := range keys {
			if !index[k] {
				index[k] = true
				headers = append(headers, k)
			}
		}
		objects = append(objects, obj)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return core.Sheet{}, err
	}

	records := make([][]string, 0, len(objects)+1)
	records = append(records, headers)
	for _, obj := range objects {
		rec := make([]string, len(headers))
		for i, h := range headers {
			rec[i] = obj[h]
		}
		records = append(records, rec)
	}
	if len(headers) == 0 {
		return core.Sheet{Headers: []string{}, Rows: []core.RawRow{}}, nil
	}
	return fromRecords(records), nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("parse json: expected %q, got %v", want, tok)
	}
	return nil
}

// readObject reads one object, keeping key order. Scalars become their text;
// null becomes ""; nested values keep their JSON text.
func readObject(dec *json.Decoder) ([]string, map[string]string, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, nil, err
	}

	var keys []string
	obj := make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("parse json: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("parse json: expected key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("parse json: %w", err)
		}
		if _, dup := obj[key]; !dup {
			keys = append(keys, key)
		}
		obj[key] = jsonCell(raw)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return keys, obj, nil
}

func jsonCell(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		return ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}
