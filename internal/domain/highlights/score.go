package highlights

import (
	"regexp"
	"strings"
)

var (
	reLead    = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(?:[,.]\d{1,3})?\s*-\s*`)
	reTag     = regexp.MustCompile(`<[^>]+>|\{[^}]+\}`)
	reCue     = regexp.MustCompile(`^\s*[\[(][^\])]*[\])]\s*$`)
	reDrama   = regexp.MustCompile(`(?i)\b(kill|die|dead|love|never|always|run|help|stop|please|sorry|promise|secret|truth|why)\b`)
	reAddress = regexp.MustCompile(`(?i)\b(you|your|we|us)\b`)
	reFiller  = regexp.MustCompile(`(?i)^(yeah|yes|no|ok|okay|uh+|um+|hmm+|huh|oh)[.!?,]*$`)
)

// Text strips a raw transcript line down to its dialogue: the leading
// timestamp and inline markup are removed.
func Text(line string) string {
	t := reLead.ReplaceAllString(strings.TrimSpace(line), "")
	t = reTag.ReplaceAllString(t, "")
	return strings.Join(strings.Fields(t), " ")
}

// Score rates how much a dialogue line carries a scene, in [0..10].
// Sound cues and one-word fillers score zero.
func Score(line string) float64 {
	t := Text(line)
	if t == "" || reCue.MatchString(t) || reFiller.MatchString(t) {
		return 0
	}
	words := len(strings.Fields(t))

	s := float64(len(reDrama.FindAllStringIndex(t, -1))) * 1.1
	s += float64(len(reAddress.FindAllStringIndex(t, -1))) * 0.3
	s += float64(strings.Count(t, "!")) * 0.8
	s += float64(strings.Count(t, "?")) * 0.6
	// mid-length lines read best in a narration
	switch {
	case words >= 4 && words <= 14:
		s += 1.5
	case words > 14:
		s += 0.5
	}
	return clamp(s, 0, 10)
}

func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}
