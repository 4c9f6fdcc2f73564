package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/camsync/internal/domain/session"
	"github.com/ManuGH/camsync/internal/media"
)

// baseArgs are shared by every ffmpeg invocation that writes a file.
func baseArgs() []string {
	return []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y"}
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

func transcodeArgs(in, out string, fps float64) []string {
	args := baseArgs()
	return append(args, "-i", in, "-r", formatFPS(fps), out)
}

func trimArgs(in, out string, start, duration time.Duration) []string {
	args := baseArgs()
	return append(args,
		"-ss", session.FormatOffset(start),
		"-i", in,
		"-t", session.FormatOffset(duration),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		out,
	)
}

func snapshotArgs(in, out string, at time.Duration) []string {
	args := baseArgs()
	return append(args,
		"-ss", session.FormatOffset(at),
		"-i", in,
		"-frames:v", "1",
		"-update", "1",
		out,
	)
}

// reencodeArgs is the output codec set used when frames have to be rewritten.
func reencodeArgs() []string {
	return []string{"-c:v", "libx264", "-preset", "veryfast", "-crf", "18", "-c:a", "aac", "-b:a", "192k"}
}

func shiftArgs(in, out string, offset time.Duration) []string {
	args := baseArgs()
	if offset > 0 {
		args = append(args, "-ss", session.FormatOffset(offset), "-i", in)
	} else {
		pad := -offset
		args = append(args,
			"-i", in,
			"-vf", fmt.Sprintf("tpad=start_duration=%s:color=black", session.FormatOffset(pad)),
			"-af", fmt.Sprintf("adelay=delays=%d:all=1", pad.Milliseconds()),
		)
	}
	args = append(args, reencodeArgs()...)
	return append(args, out)
}

// compositeArgs builds the input list and filter graph for a composite. Real slots are
// scaled and letterboxed to the canvas; filler slots are lavfi black sources.
func compositeArgs(spec media.CompositeSpec, out string) []string {
	args := baseArgs()
	fps := formatFPS(spec.FPS)

	labels := make([]string, len(spec.Slots))
	filters := make([]string, 0, len(spec.Slots)+3)
	for i, slot := range spec.Slots {
		if slot.Filler {
			src := fmt.Sprintf("color=c=black:s=%dx%d:r=%s:d=%s",
				spec.Width, spec.Height, fps, strconv.FormatFloat(spec.Duration, 'f', 3, 64))
			args = append(args, "-f", "lavfi", "-i", src)
		} else {
			args = append(args, "-i", slot.Path)
		}
		labels[i] = fmt.Sprintf("[v%d]", i)
		filters = append(filters, fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%s%s",
			i, spec.Width, spec.Height, spec.Width, spec.Height, fps, labels[i]))
	}

	switch spec.Layout {
	case media.LayoutVStack:
		filters = append(filters, strings.Join(labels, "")+fmt.Sprintf("vstack=inputs=%d[v]", len(labels)))
	case media.LayoutGrid2x2:
		filters = append(filters,
			labels[0]+labels[1]+"hstack=inputs=2[top]",
			labels[2]+labels[3]+"hstack=inputs=2[bottom]",
			"[top][bottom]vstack=inputs=2[v]",
		)
	}

	args = append(args, "-filter_complex", strings.Join(filters, ";"), "-map", "[v]")
	if spec.AudioSlot >= 0 {
		args = append(args, "-map", fmt.Sprintf("%d:a?", spec.AudioSlot))
	}
	args = append(args, reencodeArgs()...)
	return append(args, "-shortest", out)
}

func pcmArgs(in string, sampleRate int, seconds float64) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-i", in}
	if seconds > 0 {
		args = append(args, "-t", strconv.FormatFloat(seconds, 'f', -1, 64))
	}
	return append(args, "-vn", "-ac", "1", "-ar", strconv.Itoa(sampleRate), "-f", "s16le", "-")
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
}
