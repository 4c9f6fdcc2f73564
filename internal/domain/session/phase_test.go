package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "02:30", want: 150 * time.Second},
		{in: "1:02:03", want: time.Hour + 2*time.Minute + 3*time.Second},
		{in: " 09:00 ", want: 9 * time.Minute},
		{in: "90", wantErr: true},
		{in: "aa:bb", wantErr: true},
		{in: "", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOffset(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhaseBounds(t *testing.T) {
	p, err := ParsePhase(PhasePlay, "02:00-07:00")
	require.NoError(t, err)
	assert.Equal(t, Phase{Name: PhasePlay, Start: "02:00", End: "07:00"}, p)

	start, dur, err := p.Bounds()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, start)
	assert.Equal(t, 5*time.Minute, dur)

	_, err = ParsePhase(PhasePlay, "02:00")
	assert.Error(t, err)
}

func TestLayoutPaths(t *testing.T) {
	l := Layout{Dir: "/db/Sessions/1001"}
	assert.Equal(t, "/db/Sessions/1001/original/window.mp4", l.Normalized(RoleWideA))
	assert.Equal(t, "/db/Sessions/1001/synced/baby.mp4", l.Synced(RoleSecondary))
	assert.Equal(t, "/db/Sessions/1001/processed/door_reunion.mp4", l.Cut(RoleWideB, PhaseReunion))
	assert.Equal(t, "/db/Sessions/1001/visualize/mother-baby_play.mp4", l.PairStack(PhasePlay))
	assert.Equal(t, "/db/Sessions/1001/visualize/session_stillface.mp4", l.QuadGrid(PhaseStillface))
	assert.Equal(t, "/db/Sessions/1001/synced/session_baby_window.mp4", l.SyncPreview(RoleSecondary, RoleWideA))
}

func TestSessionAvailableOrder(t *testing.T) {
	s := New("1", "/x")
	s.Channels[RoleWideB] = &Channel{Role: RoleWideB}
	s.Channels[RolePrimary] = &Channel{Role: RolePrimary}
	assert.Equal(t, []Role{RolePrimary, RoleWideB}, s.Available())
	assert.True(t, s.Has(RoleWideB))
	assert.False(t, s.Has(RoleSecondary))
}
