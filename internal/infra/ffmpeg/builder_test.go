package ffmpeg

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ManuGH/camsync/internal/media"
)

func TestTrimArgs(t *testing.T) {
	args := trimArgs("/s/synced/mother.mp4", "/s/processed/.mother_play.partial.mp4", 2*time.Minute, 5*time.Minute)
	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-ss", "120",
		"-i", "/s/synced/mother.mp4",
		"-t", "300",
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"/s/processed/.mother_play.partial.mp4",
	}, args)
}

func TestTranscodeArgs(t *testing.T) {
	args := transcodeArgs("in.MTS", "out.mp4", 60)
	assert.Equal(t, []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-i", "in.MTS", "-r", "60", "out.mp4"}, args)
}

func TestShiftArgs(t *testing.T) {
	head := strings.Join(shiftArgs("in.mp4", "out.mp4", 1500*time.Millisecond), " ")
	assert.Contains(t, head, "-ss 1.5 -i in.mp4")
	assert.NotContains(t, head, "tpad")

	pad := strings.Join(shiftArgs("in.mp4", "out.mp4", -250*time.Millisecond), " ")
	assert.Contains(t, pad, "tpad=start_duration=0.25:color=black")
	assert.Contains(t, pad, "adelay=delays=250:all=1")
	assert.True(t, strings.HasSuffix(pad, "out.mp4"))
}

func TestCompositeArgs_Grid(t *testing.T) {
	spec := media.CompositeSpec{
		Layout: media.LayoutGrid2x2,
		Slots: []media.Slot{
			{Path: "mother.mp4"},
			{Filler: true},
			{Filler: true},
			{Filler: true},
		},
		AudioSlot: 0,
		Width:     1920,
		Height:    1080,
		FPS:       60,
		Duration:  120,
	}
	args := compositeArgs(spec, "grid.mp4")
	joined := strings.Join(args, " ")

	assert.Equal(t, 4, strings.Count(joined, "-i "))
	assert.Equal(t, 3, strings.Count(joined, "-f lavfi -i color=c=black:s=1920x1080:r=60:d=120.000"))
	assert.Contains(t, joined, "[v0][v1]hstack=inputs=2[top];[v2][v3]hstack=inputs=2[bottom];[top][bottom]vstack=inputs=2[v]")
	assert.Contains(t, joined, "-map 0:a?")
	assert.Equal(t, "grid.mp4", args[len(args)-1])
}

func TestCompositeArgs_VStackAudioFromBottom(t *testing.T) {
	spec := media.CompositeSpec{
		Layout:    media.LayoutVStack,
		Slots:     []media.Slot{{Path: "mother.mp4"}, {Path: "baby.mp4"}},
		AudioSlot: 1,
		Width:     1920, Height: 1080, FPS: 60,
	}
	joined := strings.Join(compositeArgs(spec, "mb.mp4"), " ")
	assert.Contains(t, joined, "-i mother.mp4 -i baby.mp4")
	assert.Contains(t, joined, "[v0][v1]vstack=inputs=2[v]")
	assert.Contains(t, joined, "-map 1:a?")
}

func TestCompositeArgs_NoAudio(t *testing.T) {
	spec := media.CompositeSpec{
		Layout:    media.LayoutVStack,
		Slots:     []media.Slot{{Path: "a.mp4"}, {Path: "b.mp4"}},
		AudioSlot: -1,
		Width:     640, Height: 360, FPS: 30,
	}
	joined := strings.Join(compositeArgs(spec, "o.mp4"), " ")
	assert.NotContains(t, joined, ":a?")
}

func TestPCMArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-hide_banner", "-loglevel", "error", "-nostdin", "-i", "a.mp4", "-t", "300", "-vn", "-ac", "1", "-ar", "8000", "-f", "s16le", "-"},
		pcmArgs("a.mp4", 8000, 300))
}
