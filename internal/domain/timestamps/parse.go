package timestamps

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/forPelevin/reelcut/internal/types"
)

// HH:MM:SS with an optional ",fff" (or ".fff") suffix. Only the line prefix
// has to match; narration text after the timestamp is ignored.
var reTimestamp = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})[,.]?(\d{0,3})`)

// Parse converts transcript lines into offsets in seconds. Input order is
// kept and duplicates are not removed. Lines without a timestamp prefix are
// skipped.
func Parse(lines []string) ([]float64, error) {
	var out []float64
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		sec, ok := parseLine(ln)
		if !ok {
			continue
		}
		out = append(out, sec)
	}
	if len(out) == 0 {
		return nil, types.ErrNoValidTimestamps
	}
	return out, nil
}

func ParseText(text string) ([]float64, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return Parse(strings.Split(strings.TrimSpace(text), "\n"))
}

func parseLine(ln string) (float64, bool) {
	m := reTimestamp.FindStringSubmatch(ln)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	sec := float64(h*3600 + mm*60 + s)
	// The fraction is read as a millisecond count, so ",5" is 5ms.
	if m[4] != "" {
		ms, _ := strconv.Atoi(m[4])
		sec += float64(ms) / 1000
	}
	return sec, true
}
