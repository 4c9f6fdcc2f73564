// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/camsync/internal/media"
)

// ProbeInfo is the subset of ffprobe output the pipeline relies on.
type ProbeInfo struct {
	Duration float64 // seconds, container level
	FPS      float64 // first video stream
	Width    int
	Height   int
	HasAudio bool
}

// Probe runs ffprobe and decodes its JSON report.
func (e *Engine) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	out, err := e.run(ctx, media.ErrProbe, "ffprobe", path, e.FFprobeBin, probeArgs(path))
	if err != nil {
		return nil, err
	}
	info, err := parseProbe(out)
	if err != nil {
		return nil, media.NewOpError(media.ErrProbe, "ffprobe", path, "", err)
	}
	return info, nil
}

// ProbeDuration returns the container duration in seconds.
func (e *Engine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	info, err := e.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	if info.Duration <= 0 {
		return 0, media.NewOpError(media.ErrProbe, "ffprobe", path, "", fmt.Errorf("no duration reported"))
	}
	return info.Duration, nil
}

// ProbeFPS returns the average frame rate of the first video stream.
func (e *Engine) ProbeFPS(ctx context.Context, path string) (float64, error) {
	info, err := e.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	if info.FPS <= 0 {
		return 0, media.NewOpError(media.ErrProbe, "ffprobe", path, "", fmt.Errorf("no video frame rate reported"))
	}
	return info.FPS, nil
}

type probeData struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width,omitempty"`
		Height       int    `json:"height,omitempty"`
		Duration     string `json:"duration,omitempty"`
		AvgFrameRate string `json:"avg_frame_rate,omitempty"`
		RFrameRate   string `json:"r_frame_rate,omitempty"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

func parseProbe(out []byte) (*ProbeInfo, error) {
	var data probeData
	if err := json.Unmarshal(out, &data); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	info := &ProbeInfo{}
	if data.Format.Duration != "" {
		if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	videoSeen := false
	for _, s := range data.Streams {
		switch s.CodecType {
		case "video":
			if videoSeen {
				continue
			}
			videoSeen = true
			info.Width = s.Width
			info.Height = s.Height
			info.FPS = parseRate(s.AvgFrameRate)
			if info.FPS == 0 {
				info.FPS = parseRate(s.RFrameRate)
			}
			// MTS containers sometimes omit the format duration.
			if info.Duration == 0 && s.Duration != "" {
				if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
					info.Duration = d
				}
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

// parseRate converts an ffprobe rational ("60000/1001") into a float.
func parseRate(rate string) float64 {
	if rate == "" || rate == "0/0" {
		return 0
	}
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		v, _ := strconv.ParseFloat(rate, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
