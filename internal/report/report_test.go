package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/ledger"
	"github.com/ManuGH/camsync/internal/roster"
)

func ms(v int64) *int64 { return &v }

func TestComputeOffsetStats(t *testing.T) {
	s := ComputeOffsetStats([]ledger.Entry{
		{ID: "1", Offset: ms(100)},
		{ID: "2", Offset: ms(-300)},
		{ID: "3"},
		{ID: "4", Offset: ms(200)},
	})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 1, s.Missing)
	assert.InDelta(t, 0, s.MeanMS, 1e-9)
	assert.Equal(t, 100.0, s.MedianMS)
	assert.Equal(t, -300.0, s.MinMS)
	assert.Equal(t, 200.0, s.MaxMS)
	assert.Greater(t, s.StdMS, 0.0)

	assert.Equal(t, OffsetStats{Missing: 1}, ComputeOffsetStats([]ledger.Entry{{ID: "x"}}))
}

func TestMissingCSV(t *testing.T) {
	rows := []roster.Row{
		{ID: "1001", Date: "2024-03-01", Hour: "10:00", Missing: []session.Role{session.RoleWideA}, MissingSensors: []string{"polar_baby"}},
		{ID: "1002"},
	}
	entries := MissingEntries(rows)
	require.Len(t, entries, 2)

	path := filepath.Join(t.TempDir(), MissingFilesReport)
	require.NoError(t, WriteMissingCSV(path, entries))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID,session_date,session_hour,missing\n"+
		"1001,2024-03-01,10:00,camera {window}\n"+
		"1001,2024-03-01,10:00,HRV {polar_baby}\n", string(data))
}

func TestBuild(t *testing.T) {
	db := t.TempDir()
	syncL, err := ledger.Open(ledger.BackendFile, db, ledger.StageSync)
	require.NoError(t, err)
	cutL, err := ledger.Open(ledger.BackendFile, db, ledger.StageCut)
	require.NoError(t, err)

	require.NoError(t, syncL.MarkCompleted(ledger.Entry{ID: "1", Offset: ms(40)}))
	require.NoError(t, syncL.MarkFailed("2"))
	require.NoError(t, cutL.MarkCompleted(ledger.Entry{ID: "1"}))

	rows := []roster.Row{
		{ID: "1", Eligible: true},
		{ID: "2", Eligible: true},
		{ID: "3", Eligible: true, ManualOffsetMS: ms(5)},
		{ID: "4", Eligible: false},
	}
	s, err := Build(rows, syncL, cutL)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Rows)
	assert.Equal(t, 3, s.Eligible)
	assert.Equal(t, 1, s.Manual)
	assert.Equal(t, StageProgress{Completed: 1, Failed: 1, Pending: 0, FailedIDs: []string{"2"}}, s.Sync)
	assert.Equal(t, StageProgress{Completed: 1, Pending: 2}, s.Cut)

	var buf bytes.Buffer
	require.NoError(t, s.WriteText(&buf))
	assert.Contains(t, buf.String(), "sync: completed 1, failed 1, pending 0")
}

func TestPlotOffsets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offsets.png")
	require.ErrorIs(t, PlotOffsets(path, nil, 10), ErrNoOffsets)

	require.NoError(t, PlotOffsets(path, []float64{-120, 40, 45, 300, 310, 900}, 5))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
