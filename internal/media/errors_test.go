package media

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpError_Classification(t *testing.T) {
	cause := errors.New("exit status 1")
	err := error(NewOpError(ErrTrim, "trim", "/x/in.mp4", "bad input", cause))

	assert.True(t, errors.Is(err, ErrTrim))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrComposite))
	assert.Contains(t, err.Error(), "trim /x/in.mp4")
	assert.Contains(t, err.Error(), "bad input")

	var opErr *OpError
	assert.True(t, errors.As(err, &opErr))
	assert.Equal(t, "trim", opErr.Op)
}

func TestOpError_TruncatesStderr(t *testing.T) {
	long := strings.Repeat("x", maxStderrTail*2)
	err := NewOpError(ErrProbe, "ffprobe", "p", long, nil)
	assert.Len(t, err.Stderr, maxStderrTail+3)
	assert.True(t, errors.Is(err, ErrProbe))
}

func TestCompositeSpec_RealSlots(t *testing.T) {
	spec := CompositeSpec{Slots: []Slot{{Path: "a"}, {Filler: true}, {Filler: true}, {Path: "b"}}}
	assert.Equal(t, 2, spec.RealSlots())
	assert.Equal(t, "grid2x2", LayoutGrid2x2.String())
}
