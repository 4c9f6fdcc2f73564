package ledger

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/camsync/internal/persistence/sqlite"
)

func offset(v int64) *int64 { return &v }

func backends(t *testing.T) map[string]func(stage Stage) Ledger {
	return map[string]func(stage Stage) Ledger{
		BackendFile: func(stage Stage) Ledger {
			l, err := Open(BackendFile, t.TempDir(), stage)
			require.NoError(t, err)
			return l
		},
		BackendSQLite: func(stage Stage) Ledger {
			l, err := Open(BackendSQLite, t.TempDir(), stage)
			require.NoError(t, err)
			t.Cleanup(func() { _ = l.Close() })
			return l
		},
	}
}

func TestLedger_Contract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			l := open(StageSync)

			ok, err := l.HasCompleted("2001")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, l.MarkCompleted(Entry{ID: "2001", Offset: offset(-420)}))
			require.NoError(t, l.MarkCompleted(Entry{ID: "2003"}))
			require.NoError(t, l.MarkFailed("2002"))

			ok, err = l.HasCompleted("2001")
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = l.HasCompleted("2002")
			require.NoError(t, err)
			assert.False(t, ok)

			got, err := l.Completed()
			require.NoError(t, err)
			want := []Entry{{ID: "2001", Offset: offset(-420)}, {ID: "2003"}}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("completed mismatch (-want +got):\n%s", diff)
			}

			failed, err := l.Failed()
			require.NoError(t, err)
			assert.Equal(t, []string{"2002"}, failed)
		})
	}
}

func TestFile_Format(t *testing.T) {
	db := t.TempDir()
	synced, err := Open(BackendFile, db, StageSync)
	require.NoError(t, err)
	require.NoError(t, synced.MarkCompleted(Entry{ID: "2001", Offset: offset(1250)}))
	require.NoError(t, synced.MarkCompleted(Entry{ID: "2003"}))
	require.NoError(t, synced.MarkFailed("2002"))

	cut, err := Open(BackendFile, db, StageCut)
	require.NoError(t, err)
	require.NoError(t, cut.MarkCompleted(Entry{ID: "2001", Offset: offset(99)}))
	require.NoError(t, cut.MarkFailed("2004"))

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(db, name))
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, "2001,1250\n2003,\n", read("synced_sessions.txt"))
	assert.Equal(t, "2002\n", read("failed_sessions.txt"))
	assert.Equal(t, "2001\n", read("cut_sessions.txt"))
	assert.Equal(t, "2004\n", read("failed_cut_sessions.txt"))
}

func TestFile_ExactIDMatch(t *testing.T) {
	db := t.TempDir()
	completed, failed := Files(db, StageSync)
	require.NoError(t, os.WriteFile(completed, []byte("20011,5\n"), 0o644))

	l := NewFile(completed, failed, true)
	ok, err := l.HasCompleted("2001")
	require.NoError(t, err)
	assert.False(t, ok, "prefix of another id must not count as completed")
}

func TestFile_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	db := t.TempDir()
	l, err := Open(BackendFile, db, StageSync)
	require.NoError(t, err)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.MarkCompleted(Entry{ID: strconv.Itoa(1000 + i), Offset: offset(int64(i))}))
		}(i)
	}
	wg.Wait()

	completed, _ := Files(db, StageSync)
	data, err := os.ReadFile(completed)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, n)
	for _, line := range lines {
		id, off, ok := strings.Cut(line, ",")
		require.True(t, ok, line)
		idN, err := strconv.Atoi(id)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(idN-1000), off)
	}
}

func TestSQLite_StagesAreIndependent(t *testing.T) {
	db := t.TempDir()
	s, err := OpenSQLite(SQLitePath(db), StageSync)
	require.NoError(t, err)
	c, err := OpenSQLite(SQLitePath(db), StageCut)
	require.NoError(t, err)

	require.NoError(t, s.MarkCompleted(Entry{ID: "7"}))
	ok, err := c.HasCompleted("7")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Close())
	require.NoError(t, c.Close())
	issues, err := sqlite.VerifyIntegrity(SQLitePath(db), false)
	require.NoError(t, err)
	assert.Nil(t, issues)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("redis", t.TempDir(), StageSync)
	require.Error(t, err)
}

func TestFile_ToleratesNonNumericOffsets(t *testing.T) {
	tests := []struct {
		line string
		want *int64
	}{
		{"1001,None", nil},
		{"1001,nan", nil},
		{"1001,", nil},
		{"1001,-875", offset(-875)},
		{"1001,875.0", offset(875)},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			db := t.TempDir()
			completed, failed := Files(db, StageSync)
			require.NoError(t, os.WriteFile(completed, []byte(tt.line+"\n"), 0o644))
			l := NewFile(completed, failed, true)

			ok, err := l.HasCompleted("1001")
			require.NoError(t, err)
			assert.True(t, ok)

			entries, err := l.Completed()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Offset)
		})
	}
}
