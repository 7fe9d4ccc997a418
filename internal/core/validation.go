package core

// Validate coerces and checks every raw row against cfg using mapping.
//
// It is a pure function: the output depends only on its inputs and a fresh
// slice is returned on every call. Row-level problems are reported in each
// ParsedRow's Errors and Warnings, never as a Go error.
func Validate(rows []RawRow, mapping ColumnMapping, cfg ImportTypeConfig) []ParsedRow {
	out := make([]ParsedRow, len(rows))
	for i, raw := range rows {
		out[i] = ValidateRow(i, raw, mapping, cfg)
	}
	return out
}

// ValidateRow validates a single raw row. index is the row's 0-based position.
func ValidateRow(index int, raw RawRow, mapping ColumnMapping, cfg ImportTypeConfig) ParsedRow {
	row := ParsedRow{
		Index:    index,
		Data:     make(CanonicalRow, len(cfg.Fields)),
		Errors:   []string{},
		Warnings: []string{},
	}

	for _, f := range cfg.Fields {
		header, mapped := mapping[f.Key]
		if !mapped {
			if f.Required {
				row.Errors = append(row.Errors, (&MappingGapError{Field: f.Key}).Error())
				row.Errors = append(row.Errors, (&RequiredFieldEmptyError{Field: f.Key}).Error())
			}
			continue
		}

		cell := raw[header]

		var v Value
		switch f.Type {
		case FieldNumeric:
			var warn *CoercionWarning
			v, warn = CoerceNumber(f.Key, cell)
			if warn != nil {
				row.Warnings = append(row.Warnings, warn.Error())
			}
		default:
			v = TextValue(cell)
		}
		row.Data[f.Key] = v

		if f.Required && v.IsEmpty() {
			row.Errors = append(row.Errors, (&RequiredFieldEmptyError{Field: f.Key}).Error())
		}
	}

	row.Status = classify(row.Errors, row.Warnings)
	return row
}

// classify derives a row status: error iff errors exist, warning iff only
// warnings exist, valid otherwise.
func classify(errs, warnings []string) RowStatus {
	switch {
	case len(errs) > 0:
		return StatusError
	case len(warnings) > 0:
		return StatusWarning
	default:
		return StatusValid
	}
}

// Importable returns the rows that may be submitted, in original order.
func Importable(rows []ParsedRow) []ParsedRow {
	out := make([]ParsedRow, 0, len(rows))
	for _, r := range rows {
		if r.Importable() {
			out = append(out, r)
		}
	}
	return out
}
