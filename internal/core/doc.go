// Package core provides the business logic for importing business records
// (contacts, items, chart-of-accounts entries) from spreadsheets.
//
// This package has no transport dependencies. The HTTP server in package web
// and the importctl command drive the same types.
//
// # Pipeline
//
// An import moves through a fixed sequence of stages held by [Session]:
//
//	collecting -> mapping -> previewing -> importing -> complete
//
// Previewing may step back to mapping, and [Session.Reset] returns any stage
// to collecting.
//
//  1. A [Parser] turns the uploaded file into headers and raw rows.
//  2. [AutoMap] binds each canonical field of the target to a header.
//     Users adjust the result with [ColumnMapping.Update].
//  3. [Validate] coerces every row and classifies it valid, warning or error.
//  4. [BatchImporter] hands each non-error row to a [Creator], one at a time,
//     and reports progress after each row.
//
// # Import Targets
//
// Targets are registered at init time using [Register]:
//
//	core.Register(core.ImportTypeConfig{
//	    ID:    "items",
//	    Label: "Items",
//	    Fields: []core.FieldSpec{
//	        {Key: "name", Label: "Name", Required: true},
//	        {Key: "sale_price", Label: "Sale Price", Type: core.FieldNumeric},
//	    },
//	})
//
// [GenerateTemplate] renders a target's sample rows with the field labels as
// headers, so a downloaded template maps and validates without edits.
//
// # Error Handling
//
// Row problems never surface as Go errors; they live on each [ParsedRow].
// Technical errors are mapped to user-facing messages with [MapError]:
//
//   - FILE001-FILE006: File errors (size, format, empty sheets)
//   - MAP001-MAP002: Mapping errors (gaps, unknown fields)
//   - VAL002-VAL003: Row validation errors
//   - IMP001-IMP004: Import errors (nothing importable, busy, cancelled)
//   - SES001-SES002: Session errors (expired, wrong stage)
//   - DB001-DB008: Persistence errors reported by the store
//
// Users see at most [DefaultErrorSampleSize] import errors followed by a
// "+N more" marker; see [SummarizeErrors].
package core
