package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceEnv struct {
	svc      *Service
	creator  *recordingCreator
	recorder *memRecorder
}

func newServiceEnv(t *testing.T, sheet Sheet, opts ...ServiceOption) serviceEnv {
	t.Helper()
	registerWidgets(t)
	env := serviceEnv{
		creator:  &recordingCreator{},
		recorder: &memRecorder{},
	}
	opts = append([]ServiceOption{WithRecorder(env.recorder)}, opts...)
	env.svc = NewService(stubParser{sheet: sheet}, env.creator, opts...)
	return env
}

// previewing creates a session and walks it to the preview stage.
func (e serviceEnv) previewing(t *testing.T) string {
	t.Helper()
	snap, err := e.svc.CreateSession(context.Background(), "widgets")
	require.NoError(t, err)
	_, err = e.svc.Upload(context.Background(), snap.ID, "widgets.csv", []byte("ignored"))
	require.NoError(t, err)
	_, err = e.svc.Validate(snap.ID)
	require.NoError(t, err)
	return snap.ID
}

func TestServiceImportLifecycle(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(5))
	env.creator.failOn = map[int]bool{2: true}
	id := env.previewing(t)

	ctx := ContextWithClient(context.Background(), "203.0.113.9", "test-agent")
	snap, err := env.svc.StartImport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StageImporting, snap.Stage)

	res, err := env.svc.WaitResult(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 4, res.Success)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{`Row 2: duplicate name "Widget 2"`}, res.Errors)

	snap, err = env.svc.GetSession(id)
	require.NoError(t, err)
	assert.Equal(t, StageComplete, snap.Stage)
	assert.Equal(t, 100, snap.Progress)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 4, snap.Result.Success)

	runs := env.recorder.all()
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].SessionID)
	assert.Equal(t, "widgets", runs[0].Target)
	assert.Equal(t, "widgets.csv", runs[0].FileName)
	assert.Equal(t, PhaseComplete, runs[0].Phase)
	assert.Equal(t, "203.0.113.9", runs[0].IPAddress)
	assert.Equal(t, "test-agent", runs[0].UserAgent)
}

func TestServiceSubscribeProgress(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(3))
	env.creator.block = make(chan struct{})
	id := env.previewing(t)

	_, err := env.svc.StartImport(context.Background(), id)
	require.NoError(t, err)

	updates, err := env.svc.SubscribeProgress(id)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		env.creator.block <- struct{}{}
	}

	var got []ImportProgress
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case p, ok := <-updates:
			if !ok {
				done = true
				break
			}
			got = append(got, p)
		case <-timeout:
			t.Fatal("progress channel never closed")
		}
	}

	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, PhaseComplete, last.Phase)
	assert.Equal(t, 3, last.Success)

	percent := 0
	for _, p := range got {
		if p.Phase == PhaseImporting {
			assert.GreaterOrEqual(t, p.Percent, percent)
			percent = p.Percent
		}
	}
	assert.Equal(t, 100, percent)

	// Late subscribers get the final state and a closed channel
	late, err := env.svc.SubscribeProgress(id)
	require.NoError(t, err)
	p, ok := <-late
	require.True(t, ok)
	assert.Equal(t, PhaseComplete, p.Phase)
	_, ok = <-late
	assert.False(t, ok)
}

func TestServiceCancelImport(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(5))
	env.creator.block = make(chan struct{})
	id := env.previewing(t)

	_, err := env.svc.StartImport(context.Background(), id)
	require.NoError(t, err)

	require.NoError(t, env.svc.CancelImport(id))
	close(env.creator.block)

	res, err := env.svc.WaitResult(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Success+res.Cancelled)
	assert.GreaterOrEqual(t, res.Cancelled, 4)
	assert.LessOrEqual(t, env.creator.calls(), 1)

	runs := env.recorder.all()
	require.Len(t, runs, 1)
	assert.Equal(t, PhaseCancelled, runs[0].Phase)

	snap, err := env.svc.GetSession(id)
	require.NoError(t, err)
	assert.Equal(t, StageComplete, snap.Stage)
}

func TestServiceStartImportErrors(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(2))

	_, err := env.svc.StartImport(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	snap, err := env.svc.CreateSession(context.Background(), "widgets")
	require.NoError(t, err)
	_, err = env.svc.StartImport(context.Background(), snap.ID)
	var stageErr *StageError
	assert.ErrorAs(t, err, &stageErr)

	_, err = env.svc.Upload(context.Background(), snap.ID, "w.csv", nil)
	require.NoError(t, err)
	_, err = env.svc.UpdateMapping(snap.ID, "name", "")
	require.NoError(t, err)
	_, err = env.svc.Validate(snap.ID)
	require.NoError(t, err)

	snap, err = env.svc.StartImport(context.Background(), snap.ID)
	assert.ErrorIs(t, err, ErrNoImportableRows)
	assert.Equal(t, StagePreviewing, snap.Stage)
	assert.Zero(t, env.creator.calls())
	assert.Zero(t, env.svc.LimiterStatus().Active)

	_, err = env.svc.CreateSession(context.Background(), "invoices")
	var targetErr *UnknownTargetError
	assert.ErrorAs(t, err, &targetErr)
}

func TestServiceNoImportRunning(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(1))
	snap, err := env.svc.CreateSession(context.Background(), "widgets")
	require.NoError(t, err)

	_, err = env.svc.SubscribeProgress(snap.ID)
	assert.ErrorIs(t, err, ErrNoImportRunning)
	assert.ErrorIs(t, env.svc.CancelImport(snap.ID), ErrNoImportRunning)
	_, err = env.svc.WaitResult(context.Background(), snap.ID)
	assert.ErrorIs(t, err, ErrNoImportRunning)
}

func TestServiceTooManyImports(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(2), WithLimiter(NewImportLimiter(1, 50*time.Millisecond)))
	env.creator.block = make(chan struct{})
	first := env.previewing(t)
	second := env.previewing(t)

	_, err := env.svc.StartImport(context.Background(), first)
	require.NoError(t, err)

	snap, err := env.svc.StartImport(context.Background(), second)
	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.Empty(t, snap.ID)

	snap, err = env.svc.GetSession(second)
	require.NoError(t, err)
	assert.Equal(t, StagePreviewing, snap.Stage)

	close(env.creator.block)
	_, err = env.svc.WaitResult(context.Background(), first)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.svc.WaitForImports(ctx))
}

func TestServiceQueuedImportStartsWhenSlotFrees(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(2), WithLimiter(NewImportLimiter(1, 5*time.Second)))
	env.creator.block = make(chan struct{})
	first := env.previewing(t)
	second := env.previewing(t)

	_, err := env.svc.StartImport(context.Background(), first)
	require.NoError(t, err)

	started := make(chan error, 1)
	go func() {
		_, err := env.svc.StartImport(context.Background(), second)
		started <- err
	}()

	time.Sleep(20 * time.Millisecond)
	snap, err := env.svc.GetSession(second)
	require.NoError(t, err)
	assert.Equal(t, StagePreviewing, snap.Stage, "second import waits for a slot")

	close(env.creator.block)
	select {
	case err := <-started:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("queued import never started")
	}

	res, err := env.svc.WaitResult(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
}

func TestServiceResetCancelsImport(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(4))
	env.creator.block = make(chan struct{})
	id := env.previewing(t)

	_, err := env.svc.StartImport(context.Background(), id)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(env.creator.block)
	}()

	snap, err := env.svc.Reset(id)
	require.NoError(t, err)
	assert.Equal(t, StageCollecting, snap.Stage)
	assert.Nil(t, snap.Result)

	_, err = env.svc.WaitResult(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoImportRunning)
	assert.LessOrEqual(t, env.creator.calls(), 1)
}

func TestServiceSelectTargetDropsFinishedImport(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(2))
	Register(ImportTypeConfig{ID: "gadgets", Fields: []FieldSpec{{Key: "code", Label: "Code", Required: true}}})
	id := env.previewing(t)

	_, err := env.svc.StartImport(context.Background(), id)
	require.NoError(t, err)
	_, err = env.svc.WaitResult(context.Background(), id)
	require.NoError(t, err)

	snap, err := env.svc.SelectTarget(id, "gadgets")
	require.NoError(t, err)
	assert.Equal(t, StageCollecting, snap.Stage)
	assert.Equal(t, "gadgets", snap.Target)
	assert.Nil(t, snap.Result)

	_, err = env.svc.WaitResult(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoImportRunning)
	_, err = env.svc.SubscribeProgress(id)
	assert.ErrorIs(t, err, ErrNoImportRunning)
	assert.ErrorIs(t, env.svc.CancelImport(id), ErrNoImportRunning)

	_, err = env.svc.SelectTarget(id, "invoices")
	var targetErr *UnknownTargetError
	assert.ErrorAs(t, err, &targetErr)
}

func TestServiceSelectTargetRejectedWhileImporting(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(2))
	env.creator.block = make(chan struct{})
	id := env.previewing(t)

	_, err := env.svc.StartImport(context.Background(), id)
	require.NoError(t, err)

	snap, err := env.svc.SelectTarget(id, "widgets")
	var stageErr *StageError
	assert.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageImporting, snap.Stage)

	close(env.creator.block)
	res, err := env.svc.WaitResult(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
}

func TestServiceMappingOperations(t *testing.T) {
	env := newServiceEnv(t, Sheet{
		Headers: []string{"Product", "Kind", "Price"},
		Rows:    []RawRow{{"Product": "Lamp", "Kind": "goods", "Price": "3"}},
	})
	snap, err := env.svc.CreateSession(context.Background(), "widgets")
	require.NoError(t, err)
	id := snap.ID

	snap, err = env.svc.Upload(context.Background(), id, "w.csv", nil)
	require.NoError(t, err)
	assert.Equal(t, StageMapping, snap.Stage)
	assert.Contains(t, snap.Unmapped, "name")

	_, err = env.svc.UpdateMapping(id, "colour", "Kind")
	var fieldErr *UnknownFieldError
	assert.ErrorAs(t, err, &fieldErr)

	snap, err = env.svc.ApplyMapping(id, ColumnMapping{
		"name":   "Product",
		"type":   "Kind",
		"colour": "Kind",
		"email":  "",
	})
	require.NoError(t, err)
	assert.Equal(t, ColumnMapping{"name": "Product", "type": "Kind"}, snap.Mapping)

	_, err = env.svc.Suggestions(id)
	require.NoError(t, err)

	snap, err = env.svc.Validate(id)
	require.NoError(t, err)
	require.NotNil(t, snap.Counts)
	assert.Equal(t, 1, snap.Counts.Valid)

	snap, err = env.svc.BackToMapping(id)
	require.NoError(t, err)
	assert.Equal(t, StageMapping, snap.Stage)
}

func TestServiceRows(t *testing.T) {
	raw := widgetRows(6)
	raw[1]["Name"] = ""
	raw[4]["Name"] = ""
	env := newServiceEnv(t, Sheet{Headers: []string{"Name", "Type", "Sale Price"}, Rows: raw})
	id := env.previewing(t)

	page, total, err := env.svc.Rows(id, "", 0, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Len(t, page, 4)

	page, total, err = env.svc.Rows(id, StatusError, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, page, 2)
	assert.Equal(t, 1, page[0].Index)
	assert.Equal(t, 4, page[1].Index)

	page, total, err = env.svc.Rows(id, StatusValid, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, page)
}

func TestServiceDeleteSession(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(1))
	snap, err := env.svc.CreateSession(context.Background(), "widgets")
	require.NoError(t, err)
	assert.Equal(t, 1, env.svc.SessionCount())

	require.NoError(t, env.svc.DeleteSession(snap.ID))
	assert.Zero(t, env.svc.SessionCount())

	_, err = env.svc.GetSession(snap.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, env.svc.DeleteSession(snap.ID), ErrSessionNotFound)
}

func TestServicePruneIdle(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(1))
	stale, err := env.svc.CreateSession(context.Background(), "widgets")
	require.NoError(t, err)
	fresh, err := env.svc.CreateSession(context.Background(), "widgets")
	require.NoError(t, err)

	env.svc.sessions[stale.ID].touched = time.Now().Add(-2 * time.Hour)

	assert.Equal(t, 1, env.svc.PruneIdle(time.Hour))
	_, err = env.svc.GetSession(stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = env.svc.GetSession(fresh.ID)
	assert.NoError(t, err)
}

func TestStartJanitor(t *testing.T) {
	env := newServiceEnv(t, widgetSheet(1))
	snap, err := env.svc.CreateSession(context.Background(), "widgets")
	require.NoError(t, err)
	env.svc.sessions[snap.ID].touched = time.Now().Add(-2 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.svc.StartJanitor(ctx, JanitorConfig{MaxIdle: time.Hour, CheckInterval: 10 * time.Millisecond})
		close(done)
	}()

	require.Eventually(t, func() bool { return env.svc.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
