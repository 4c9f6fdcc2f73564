package ffmpeg

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ManuGH/camsync/internal/media"
)

// ExtractPCM decodes the first seconds of in's audio as mono samples in [-1, 1].
// seconds <= 0 decodes the whole track.
func (e *Engine) ExtractPCM(ctx context.Context, in string, sampleRate int, seconds float64) ([]float64, error) {
	out, err := e.run(ctx, media.ErrAlign, "extract_pcm", in, e.FFmpegBin, pcmArgs(in, sampleRate, seconds))
	if err != nil {
		return nil, err
	}
	if len(out) < 2 {
		return nil, media.NewOpError(media.ErrAlign, "extract_pcm", in, "", fmt.Errorf("no audio samples decoded"))
	}
	return decodeS16LE(out), nil
}

func decodeS16LE(raw []byte) []float64 {
	n := len(raw) / 2
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		samples[i] = float64(v) / math.MaxInt16
	}
	return samples
}
