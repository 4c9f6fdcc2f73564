package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/fsutil"
	"github.com/ManuGH/camsync/internal/ledger"
	"github.com/ManuGH/camsync/internal/pipeline/composite"
	"github.com/ManuGH/camsync/internal/pipeline/normalize"
	"github.com/ManuGH/camsync/internal/pipeline/segment"
	"github.com/ManuGH/camsync/internal/pipeline/syncer"
	"github.com/ManuGH/camsync/internal/roster"
	"github.com/ManuGH/camsync/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	db      string
	engine  *testutil.FakeEngine
	aligner *testutil.FakeAligner
	driver  *Driver
}

func newHarness(t *testing.T, concurrency int) *harness {
	t.Helper()
	db := t.TempDir()
	h := &harness{
		db:      db,
		engine:  testutil.NewFakeEngine(),
		aligner: &testutil.FakeAligner{Offsets: map[string]int64{}},
	}
	syncLedger, err := ledger.Open(ledger.BackendFile, db, ledger.StageSync)
	require.NoError(t, err)
	cutLedger, err := ledger.Open(ledger.BackendFile, db, ledger.StageCut)
	require.NoError(t, err)

	nop := zerolog.Nop()
	h.driver = New(db, concurrency, Deps{
		Normalizer: normalize.New(h.engine, 60, nop),
		Syncer:     syncer.New(h.aligner, h.engine, syncer.Options{}, nop),
		Segmenter:  segment.New(h.engine, nop),
		Compositor: composite.New(h.engine, composite.Options{}, nop),
		SyncLedger: syncLedger,
		CutLedger:  cutLedger,
	}, nop)
	h.driver.newRunID = func() string { return "run-test" }
	return h
}

func (h *harness) ledgerText(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.db, name))
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func row(id string) roster.Row {
	return roster.Row{
		ID:       id,
		Eligible: true,
		PhaseSpans: map[string]string{
			session.PhaseBaseline:  "00:00-02:00",
			session.PhasePlay:      "02:00-07:00",
			session.PhaseStillface: "07:00-09:00",
			session.PhaseReunion:   "09:00-12:00",
		},
	}
}

func TestRunSync_FailuresAreIsolated(t *testing.T) {
	h := newHarness(t, 1)
	for _, id := range []string{"2001", "2002", "2003"} {
		testutil.MakeSession(t, h.db, id, session.RolePrimary, session.RoleSecondary)
	}
	h.aligner.Offsets["baby.mp4"] = 875
	// 2001 and 2002 cannot be written: their synced dir is a file.
	for _, id := range []string{"2001", "2002"} {
		require.NoError(t, testutil.WriteMarker(filepath.Join(h.db, "Sessions", id, "synced"), "blocker"))
	}

	sum, err := h.driver.RunSync(context.Background(), []roster.Row{row("2001"), row("2002"), row("2003")})
	require.NoError(t, err)

	assert.Equal(t, []string{"2001", "2002"}, sum.Failed)
	assert.Equal(t, []string{"2003"}, sum.Completed)
	assert.Equal(t, "2001\n2002\n", h.ledgerText(t, "failed_sessions.txt"))
	assert.Equal(t, "2003,875\n", h.ledgerText(t, "synced_sessions.txt"))
}

func TestRunSync_Filters(t *testing.T) {
	h := newHarness(t, 1)
	testutil.MakeSession(t, h.db, "10", session.RolePrimary)
	testutil.MakeSession(t, h.db, "11", session.RolePrimary)
	testutil.MakeSession(t, h.db, "12", session.RolePrimary)
	testutil.MakeSession(t, h.db, "13", session.RolePrimary)
	require.NoError(t, os.WriteFile(filepath.Join(h.db, "synced_sessions.txt"), []byte("11,\n"), 0o644))

	manual := int64(300)
	ineligible := row("10")
	ineligible.Eligible = false
	withOffset := row("12")
	withOffset.ManualOffsetMS = &manual

	sum, err := h.driver.RunSync(context.Background(), []roster.Row{ineligible, row("11"), withOffset, row("13")})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"10": SkipIneligible, "11": SkipCompleted, "12": SkipManualOffset}, sum.Skipped)
	assert.Equal(t, []string{"13"}, sum.Completed)
	assert.Equal(t, "11,\n13,\n", h.ledgerText(t, "synced_sessions.txt"), "single-subject sessions record an empty offset")
}

func TestRunSync_ZeroChannelsIsSuccess(t *testing.T) {
	h := newHarness(t, 1)
	testutil.MakeSession(t, h.db, "3001")

	sum, err := h.driver.RunSync(context.Background(), []roster.Row{row("3001"), row("3002")})
	require.NoError(t, err)
	assert.Equal(t, []string{"3001", "3002"}, sum.Completed)
	assert.Empty(t, h.engine.Calls())
	assert.Empty(t, h.aligner.Calls())
}

func TestRunSync_Concurrent(t *testing.T) {
	h := newHarness(t, 4)
	var rows []roster.Row
	for i := 0; i < 12; i++ {
		id := "50" + string(rune('a'+i))
		testutil.MakeSession(t, h.db, id, session.Roles...)
		rows = append(rows, row(id))
	}
	sum, err := h.driver.RunSync(context.Background(), rows)
	require.NoError(t, err)
	assert.Len(t, sum.Completed, 12)

	lines := strings.Split(strings.TrimSpace(h.ledgerText(t, "synced_sessions.txt")), "\n")
	assert.Len(t, lines, 12)
}

func TestPipeline_FullIdempotence(t *testing.T) {
	h := newHarness(t, 1)
	testutil.MakeSession(t, h.db, "4001", session.Roles...)
	h.engine.FPS["window.MTS"] = 50
	h.engine.DefaultDuration = 800

	_, err := h.driver.SyncSession(context.Background(), "4001")
	require.NoError(t, err)
	phases, err := row("4001").Phases()
	require.NoError(t, err)
	require.NoError(t, h.driver.CutSession(context.Background(), "4001", phases))
	require.NoError(t, h.driver.Visualize(context.Background(), "thumbnail", "4001"))

	before, err := testutil.Snapshot(h.db)
	require.NoError(t, err)
	h.engine.Reset()
	h.aligner.Reset()

	_, err = h.driver.SyncSession(context.Background(), "4001")
	require.NoError(t, err)
	require.NoError(t, h.driver.CutSession(context.Background(), "4001", phases))
	require.NoError(t, h.driver.Visualize(context.Background(), "stack", "4001"))
	require.NoError(t, h.driver.Visualize(context.Background(), "thumbnail", "4001"))

	assert.Empty(t, h.engine.Calls(), "second run must not invoke any media tool")
	assert.Empty(t, h.aligner.Calls())
	after, err := testutil.Snapshot(h.db)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, h.ledgerText(t, "synced_sessions.txt"), "single-session mode writes no ledger lines")
}

func TestRunCut_PartialSuccessCounts(t *testing.T) {
	h := newHarness(t, 1)
	dir := testutil.MakeSession(t, h.db, "1001", session.RolePrimary)
	require.NoError(t, testutil.WriteMarker(session.Layout{Dir: dir}.Synced(session.RolePrimary), "synced"))
	h.engine.Durations["mother.mp4"] = 530

	sum, err := h.driver.RunCut(context.Background(), []roster.Row{row("1001")})
	require.NoError(t, err)
	assert.Equal(t, []string{"1001"}, sum.Completed)
	assert.Equal(t, "1001\n", h.ledgerText(t, "cut_sessions.txt"))

	layout := session.Layout{Dir: dir}
	for _, p := range []string{session.PhaseBaseline, session.PhasePlay, session.PhaseStillface} {
		assert.True(t, fsutil.Exists(layout.Cut(session.RolePrimary, p)), p)
		assert.True(t, fsutil.Exists(layout.QuadGrid(p)), p)
	}
	assert.False(t, fsutil.Exists(layout.Cut(session.RolePrimary, session.PhaseReunion)))
	assert.False(t, fsutil.Exists(layout.QuadGrid(session.PhaseReunion)))
}

func TestRunCut_Failures(t *testing.T) {
	h := newHarness(t, 1)
	testutil.MakeSession(t, h.db, "6001", session.RolePrimary) // never synced
	dir := testutil.MakeSession(t, h.db, "6002", session.RoleSecondary)
	require.NoError(t, testutil.WriteMarker(session.Layout{Dir: dir}.Synced(session.RoleSecondary), "synced"))

	badTimestamps := row("6002")
	badTimestamps.PhaseSpans[session.PhasePlay] = "2m-7m"
	unannotated := roster.Row{ID: "6003", Eligible: true}

	sum, err := h.driver.RunCut(context.Background(), []roster.Row{row("6001"), badTimestamps, unannotated})
	require.NoError(t, err)
	assert.Equal(t, []string{"6001", "6002"}, sum.Failed)
	assert.Equal(t, SkipNoPhases, sum.Skipped["6003"])
	assert.Equal(t, "6001\n6002\n", h.ledgerText(t, "failed_cut_sessions.txt"))
}

func TestSyncSession_ReturnsError(t *testing.T) {
	h := newHarness(t, 1)
	testutil.MakeSession(t, h.db, "7001", session.RolePrimary, session.RoleSecondary)
	h.aligner.Fail = true

	_, err := h.driver.SyncSession(context.Background(), "7001")
	require.Error(t, err)
	assert.Empty(t, h.ledgerText(t, "failed_sessions.txt"))
}

func TestRun_CancelledContextStops(t *testing.T) {
	h := newHarness(t, 1)
	testutil.MakeSession(t, h.db, "8001", session.RolePrimary)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := h.driver.RunSync(ctx, []roster.Row{row("8001")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sum.Completed)
	assert.Empty(t, h.ledgerText(t, "synced_sessions.txt"))
}

func TestVisualize_BatchSkipsSessionsWithoutGrid(t *testing.T) {
	h := newHarness(t, 1)
	testutil.MakeSession(t, h.db, "9001")
	dir := testutil.MakeSession(t, h.db, "9002")
	require.NoError(t, testutil.WriteMarker(session.Layout{Dir: dir}.QuadGrid(session.PhaseStillface), "grid"))

	require.NoError(t, h.driver.Visualize(context.Background(), "thumbnail", ""))
	assert.True(t, fsutil.Exists(filepath.Join(h.db, "Thumbnails", "9002.png")))
	assert.False(t, fsutil.Exists(filepath.Join(h.db, "Thumbnails", "9001.png")))

	require.Error(t, h.driver.Visualize(context.Background(), "thumbnail", "9001"))
	require.Error(t, h.driver.Visualize(context.Background(), "collage", "9002"))
}

func TestRunSync_RejectsEscapingSessionID(t *testing.T) {
	h := newHarness(t, 1)
	escape := "../outside"

	sum, err := h.driver.RunSync(context.Background(), []roster.Row{row(escape)})
	require.NoError(t, err)
	assert.Equal(t, []string{escape}, sum.Failed)
	assert.Equal(t, escape+"\n", h.ledgerText(t, "failed_sessions.txt"))
	assert.Empty(t, h.engine.Calls())
}

func TestRunSync_ExistingLedgerWithoutOffsets(t *testing.T) {
	h := newHarness(t, 1)
	require.NoError(t, os.WriteFile(filepath.Join(h.db, "synced_sessions.txt"), []byte("1001,None\n"), 0o644))
	testutil.MakeSession(t, h.db, "1002", session.RolePrimary)

	sum, err := h.driver.RunSync(context.Background(), []roster.Row{row("1001"), row("1002")})
	require.NoError(t, err)
	assert.Equal(t, SkipCompleted, sum.Skipped["1001"])
	assert.Equal(t, []string{"1002"}, sum.Completed)
	assert.Equal(t, "1001,None\n1002,\n", h.ledgerText(t, "synced_sessions.txt"))
}
