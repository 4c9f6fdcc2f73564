package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveMediaOp(t *testing.T) {
	before := testutil.ToFloat64(MediaOpsTotal.WithLabelValues("trim-test", "error"))
	ObserveMediaOp("trim-test", time.Now(), errors.New("boom"))
	ObserveMediaOp("trim-test", time.Now(), nil)

	assert.Equal(t, before+1, testutil.ToFloat64(MediaOpsTotal.WithLabelValues("trim-test", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(MediaOpsTotal.WithLabelValues("trim-test", "ok")))
}

func TestWriteTextfile(t *testing.T) {
	ObserveSession("sync", "completed", time.Now())
	path := filepath.Join(t.TempDir(), "camsync.prom")

	require.NoError(t, WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "camsync_sessions_total")

	assert.NoError(t, WriteTextfile(""))
}
