package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveFFprobeBin returns the ffprobe binary to use.
//
// Resolution order:
// 1) Explicit ffprobeBin (CAMSYNC_FFPROBE_BIN or ffmpeg.ffprobe_bin)
// 2) Derived from a concrete ffmpegBin path (.../ffmpeg -> .../ffprobe) if it exists
// 3) Empty string (caller falls back to PATH lookup)
func ResolveFFprobeBin(ffprobeBin, ffmpegBin string) string {
	return resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin, os.Stat)
}

func resolveFFprobeBinWithStat(ffprobeBin, ffmpegBin string, stat func(string) (os.FileInfo, error)) string {
	if ffprobeBin = strings.TrimSpace(ffprobeBin); ffprobeBin != "" {
		return ffprobeBin
	}
	ffmpegBin = strings.TrimSpace(ffmpegBin)
	// a bare "ffmpeg" is resolved through PATH; do not guess a sibling.
	if ffmpegBin == "" || !strings.ContainsRune(ffmpegBin, '/') {
		return ""
	}
	if filepath.Base(ffmpegBin) != "ffmpeg" {
		return ""
	}
	candidate := filepath.Join(filepath.Dir(ffmpegBin), "ffprobe")
	if fi, err := stat(candidate); err == nil && fi != nil && !fi.IsDir() {
		return candidate
	}
	return ""
}
