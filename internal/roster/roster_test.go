package roster

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ManuGH/camsync/internal/domain/session"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "roster.csv")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestRead_CSV(t *testing.T) {
	path := writeCSV(t, `ID,Auto,offset_mother-baby_(ms),baseline,play,stillface,reunion,mother,baby,window,door,polar_mother
1001,y,,00:00-02:00,02:00-07:00,07:00-09:00,09:00-12:00,y,y,n,y,n
1002,n,1250.0,,,,,y,y,y,y,y
1003.0,,-40,,,,,,,,,
`)
	rows, err := Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	r := rows[0]
	assert.Equal(t, "1001", r.ID)
	assert.True(t, r.Eligible)
	assert.Nil(t, r.ManualOffsetMS)
	assert.True(t, r.HasPhases())
	assert.Equal(t, []session.Role{session.RoleWideA}, r.Missing)
	assert.Equal(t, []string{"polar_mother"}, r.MissingSensors)
	phases, err := r.Phases()
	require.NoError(t, err)
	assert.Equal(t, session.Phase{Name: session.PhaseReunion, Start: "09:00", End: "12:00"}, phases[3])

	assert.False(t, rows[1].Eligible)
	require.NotNil(t, rows[1].ManualOffsetMS)
	assert.Equal(t, int64(1250), *rows[1].ManualOffsetMS)
	assert.False(t, rows[1].HasPhases())
	_, err = rows[1].Phases()
	assert.Error(t, err)

	assert.Equal(t, "1003", rows[2].ID)
	assert.True(t, rows[2].Eligible)
	assert.Equal(t, int64(-40), *rows[2].ManualOffsetMS)
}

func TestRead_SplitPhaseColumns(t *testing.T) {
	path := writeCSV(t, "id,baseline_start,baseline_end,play_start,play_end,stillface_start,stillface_end,reunion_start,reunion_end\n"+
		"7,00:00,02:00,02:00,07:00,07:00,09:00,09:00,01:12:00\n")
	rows, err := Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "09:00-01:12:00", rows[0].PhaseSpans[session.PhaseReunion])
}

func TestRead_MalformedIsMetadataError(t *testing.T) {
	tests := map[string]string{
		"no id column": "name,auto\nx,y\n",
		"duplicate id": "ID\n1\n1\n",
		"bad offset":   "ID,offset_mother-baby_(ms)\n1,abc\n",
		"empty":        "",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(writeCSV(t, body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMetadata))
		})
	}
}

func TestRead_MissingFileIsMetadataError(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMetadata))

	_, err = Read(filepath.Join(t.TempDir(), "roster.json"))
	assert.True(t, errors.Is(err, ErrMetadata))
}

func TestRead_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"ID", "Auto", "offset_mother-baby_(ms)", "baseline", "play", "stillface", "reunion"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{2001, "y", nil, "00:00-02:00", "02:00-07:00", "07:00-09:00", "09:00-12:00"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{2002, "n", 310}))
	path := filepath.Join(t.TempDir(), "metadata_database.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := Read(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2001", rows[0].ID)
	assert.True(t, rows[0].HasPhases())
	assert.False(t, rows[1].Eligible)
	assert.Equal(t, int64(310), *rows[1].ManualOffsetMS)
}
