package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func widgetSheet(n int) Sheet {
	return Sheet{
		Headers: []string{"Name", "Type", "Sale Price"},
		Rows:    widgetRows(n),
	}
}

func newWidgetSession(sheet Sheet) *Session {
	return NewSession("s-1", widgetsConfig(), stubParser{sheet: sheet})
}

func TestSessionHappyPath(t *testing.T) {
	sess := newWidgetSession(widgetSheet(3))
	assert.Equal(t, StageCollecting, sess.Stage())

	require.NoError(t, sess.Upload("widgets.csv", []byte("ignored")))
	assert.Equal(t, StageMapping, sess.Stage())
	assert.Equal(t, "Sale Price", sess.Mapping()["sale_price"])
	assert.Equal(t, []string{"Name", "Type", "Sale Price"}, sess.Headers())

	rows, err := sess.Validate()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, StagePreviewing, sess.Stage())

	creator := &recordingCreator{}
	res, err := sess.Import(context.Background(), NewBatchImporter(creator))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Success)
	assert.Equal(t, StageComplete, sess.Stage())
	assert.Equal(t, 100, sess.Progress())
	require.NotNil(t, sess.Result())
	assert.Equal(t, 3, sess.Result().Success)
}

func TestSessionUploadFailuresStayCollecting(t *testing.T) {
	tests := []struct {
		name     string
		parser   stubParser
		wantKind ParseErrorKind
	}{
		{
			name:     "parser error",
			parser:   stubParser{err: &ParseError{Kind: ParseUnsupportedFormat, FileName: "x.pdf"}},
			wantKind: ParseUnsupportedFormat,
		},
		{
			name:     "plain error is wrapped as invalid file",
			parser:   stubParser{err: errors.New("zip: not a valid zip file")},
			wantKind: ParseInvalidFile,
		},
		{
			name:     "headers without rows",
			parser:   stubParser{sheet: Sheet{Headers: []string{"Name"}}},
			wantKind: ParseEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := NewSession("s-1", widgetsConfig(), tt.parser)

			err := sess.Upload("x", nil)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantKind, pe.Kind)
			assert.Equal(t, StageCollecting, sess.Stage())
			assert.NotEmpty(t, sess.Snapshot().Error)
		})
	}
}

func TestSessionStageGuards(t *testing.T) {
	sess := newWidgetSession(widgetSheet(1))

	var stageErr *StageError
	_, err := sess.Validate()
	assert.ErrorAs(t, err, &stageErr)
	assert.ErrorAs(t, sess.UpdateMapping("name", "Name"), &stageErr)
	assert.ErrorAs(t, sess.BackToMapping(), &stageErr)
	_, err = sess.BeginImport()
	assert.ErrorAs(t, err, &stageErr)
	assert.ErrorAs(t, sess.Complete(ImportResult{}), &stageErr)

	require.NoError(t, sess.Upload("w.csv", nil))
	assert.ErrorAs(t, sess.Upload("w.csv", nil), &stageErr)

	_, err = sess.Validate()
	require.NoError(t, err)
	assert.ErrorAs(t, sess.UpdateMapping("name", "Type"), &stageErr, "mapping is frozen while previewing")
	assert.ErrorAs(t, sess.ApplyMapping(ColumnMapping{}), &stageErr)
	assert.Equal(t, StagePreviewing, sess.Stage())
}

func TestSessionBackToMapping(t *testing.T) {
	sess := newWidgetSession(widgetSheet(2))
	require.NoError(t, sess.Upload("w.csv", nil))

	require.NoError(t, sess.UpdateMapping("name", ""))
	rows, err := sess.Validate()
	require.NoError(t, err)
	assert.Equal(t, 2, CountRows(rows).Error)

	require.NoError(t, sess.BackToMapping())
	assert.Equal(t, StageMapping, sess.Stage())
	assert.Nil(t, sess.ParsedRows())

	require.NoError(t, sess.UpdateMapping("name", "Name"))
	rows, err = sess.Validate()
	require.NoError(t, err)
	assert.Equal(t, 2, CountRows(rows).Valid)
}

// Scenario: nothing importable keeps the session in preview and never calls the collaborator.
func TestSessionRejectsImportWithoutImportableRows(t *testing.T) {
	sess := newWidgetSession(widgetSheet(3))
	require.NoError(t, sess.Upload("w.csv", nil))
	require.NoError(t, sess.UpdateMapping("type", ""))
	_, err := sess.Validate()
	require.NoError(t, err)

	creator := &recordingCreator{}
	_, err = sess.Import(context.Background(), NewBatchImporter(creator))

	assert.ErrorIs(t, err, ErrNoImportableRows)
	assert.Equal(t, StagePreviewing, sess.Stage())
	assert.Zero(t, creator.calls())
	assert.Equal(t, ErrNoImportableRows.Error(), sess.Snapshot().Error)
}

func TestSessionReset(t *testing.T) {
	stages := []func(*Session){
		func(*Session) {},
		func(s *Session) { _ = s.Upload("w.csv", nil) },
		func(s *Session) { _ = s.Upload("w.csv", nil); _, _ = s.Validate() },
		func(s *Session) {
			_ = s.Upload("w.csv", nil)
			_, _ = s.Validate()
			_, _ = s.BeginImport()
		},
		func(s *Session) {
			_ = s.Upload("w.csv", nil)
			_, _ = s.Validate()
			_, _ = s.Import(context.Background(), NewBatchImporter(&recordingCreator{}))
		},
	}

	for i, advance := range stages {
		sess := newWidgetSession(widgetSheet(2))
		advance(sess)
		sess.Reset()

		snap := sess.Snapshot()
		assert.Equal(t, StageCollecting, snap.Stage, "case %d", i)
		assert.Empty(t, snap.Headers, "case %d", i)
		assert.Empty(t, snap.Mapping, "case %d", i)
		assert.Nil(t, snap.Counts, "case %d", i)
		assert.Nil(t, snap.Result, "case %d", i)
		assert.Zero(t, snap.Progress, "case %d", i)
		assert.Zero(t, snap.RowCount, "case %d", i)
	}
}

func TestSessionSelectTarget(t *testing.T) {
	sess := newWidgetSession(widgetSheet(2))
	require.NoError(t, sess.Upload("w.csv", nil))

	other := ImportTypeConfig{ID: "gadgets", Fields: []FieldSpec{{Key: "code", Label: "Code", Required: true}}}
	require.NoError(t, sess.SelectTarget(other))
	assert.Equal(t, "gadgets", sess.Target().ID)
	assert.Equal(t, StageCollecting, sess.Stage())

	require.NoError(t, sess.Upload("w.csv", nil))
	_, err := sess.Validate()
	require.NoError(t, err)
	_, err = sess.BeginImport()
	assert.ErrorIs(t, err, ErrNoImportableRows)
}

func TestSessionProgressNeverDecreases(t *testing.T) {
	sess := newWidgetSession(widgetSheet(2))
	require.NoError(t, sess.Upload("w.csv", nil))
	_, err := sess.Validate()
	require.NoError(t, err)

	sess.SetProgress(40)
	assert.Zero(t, sess.Progress(), "ignored outside importing")

	_, err = sess.BeginImport()
	require.NoError(t, err)
	sess.SetProgress(40)
	sess.SetProgress(20)
	assert.Equal(t, 40, sess.Progress())
	sess.SetProgress(250)
	assert.Equal(t, 100, sess.Progress())
}

func TestSessionCancelledImportKeepsPartialProgress(t *testing.T) {
	sess := newWidgetSession(widgetSheet(4))
	require.NoError(t, sess.Upload("w.csv", nil))
	_, err := sess.Validate()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	creator := CreatorFunc(func(context.Context, string, CanonicalRow) (string, error) {
		cancel()
		return "id", nil
	})

	res, err := sess.Import(ctx, NewBatchImporter(creator))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 3, res.Cancelled)
	assert.Equal(t, StageComplete, sess.Stage())
	assert.Equal(t, 25, sess.Progress())
}

func TestSessionSnapshot(t *testing.T) {
	raw := widgetRows(PreviewRowLimit + 5)
	for i := 0; i < 7; i++ {
		raw[i]["Name"] = ""
	}
	sess := newWidgetSession(Sheet{Headers: []string{"Name", "Type", "Sale Price"}, Rows: raw})
	require.NoError(t, sess.Upload("w.csv", nil))
	require.NoError(t, sess.UpdateMapping("email", "Name"))

	snap := sess.Snapshot()
	assert.Equal(t, []string{"quantity"}, snap.Unmapped)
	assert.Equal(t, map[string][]string{"Name": {"email", "name"}}, snap.Duplicates)
	assert.Equal(t, PreviewRowLimit+5, snap.RowCount)
	assert.Nil(t, snap.Counts)

	_, err := sess.Validate()
	require.NoError(t, err)
	_, err = sess.Import(context.Background(), NewBatchImporter(CreatorFunc(
		func(context.Context, string, CanonicalRow) (string, error) { return "", errors.New("rejected") },
	)))
	require.NoError(t, err)

	snap = sess.Snapshot()
	require.NotNil(t, snap.Counts)
	assert.Equal(t, 7, snap.Counts.Error)
	assert.Len(t, snap.Preview, PreviewRowLimit)
	require.NotNil(t, snap.ErrorSample)
	assert.Len(t, snap.ErrorSample.Shown, DefaultErrorSampleSize)
	assert.Equal(t, "+43 more", snap.ErrorSample.MoreLabel())

	// Snapshots are copies
	snap.Mapping["name"] = "Type"
	assert.Equal(t, "Name", sess.Mapping()["name"])
}
