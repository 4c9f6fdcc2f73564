package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Canonical phase names, in protocol order.
const (
	PhaseBaseline  = "baseline"
	PhasePlay      = "play"
	PhaseStillface = "stillface"
	PhaseReunion   = "reunion"
)

// PhaseNames lists the four fixed phases of a session.
var PhaseNames = []string{PhaseBaseline, PhasePlay, PhaseStillface, PhaseReunion}

// Phase is a manually timestamped window within a session. Start and End keep the
// operator's text verbatim; ordering and overlap are not checked.
type Phase struct {
	Name  string
	Start string
	End   string
}

// ParsePhase splits a "start-end" range such as "02:00-07:00".
func ParsePhase(name, span string) (Phase, error) {
	parts := strings.Split(strings.TrimSpace(span), "-")
	if len(parts) != 2 {
		return Phase{}, fmt.Errorf("phase %s: expected start-end, got %q", name, span)
	}
	return Phase{
		Name:  name,
		Start: strings.TrimSpace(parts[0]),
		End:   strings.TrimSpace(parts[1]),
	}, nil
}

// Bounds converts the textual offsets into a start offset and a duration.
func (p Phase) Bounds() (start, duration time.Duration, err error) {
	start, err = ParseOffset(p.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("phase %s start: %w", p.Name, err)
	}
	end, err := ParseOffset(p.End)
	if err != nil {
		return 0, 0, fmt.Errorf("phase %s end: %w", p.Name, err)
	}
	return start, end - start, nil
}

func (p Phase) String() string {
	return p.Name + "=" + p.Start + "-" + p.End
}

// ParseOffset parses MM:SS or HH:MM:SS into a duration.
func ParseOffset(text string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", text)
		}
		nums[i] = n
	}

	var secs int
	switch len(nums) {
	case 2:
		secs = nums[0]*60 + nums[1]
	case 3:
		secs = nums[0]*3600 + nums[1]*60 + nums[2]
	default:
		return 0, fmt.Errorf("invalid timestamp %q: want MM:SS or HH:MM:SS", text)
	}
	return time.Duration(secs) * time.Second, nil
}

// FormatOffset renders a duration the way ffmpeg accepts it for -ss / -t.
func FormatOffset(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
