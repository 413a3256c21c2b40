package subtitles

import (
	"regexp"
	"strings"
)

const (
	DefaultParts = 4
	// DefaultMaxParts bounds how many files one split may write.
	DefaultMaxParts = 100
)

const blockSep = "\n\n"

var (
	reBlockSep = regexp.MustCompile(`\n\s*\n`)
	reIndex    = regexp.MustCompile(`^\d+$`)
)

// Blocks splits subtitle text into blank-line separated entries.
func Blocks(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	return reBlockSep.Split(text, -1)
}

// StripNumbering drops pure-numeric lines (SRT sequence indexes) from every
// block. Blocks left without lines are removed.
func StripNumbering(text string) string {
	blocks := Blocks(text)
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		var keep []string
		for _, ln := range strings.Split(strings.TrimSpace(b), "\n") {
			if reIndex.MatchString(strings.TrimSpace(ln)) {
				continue
			}
			keep = append(keep, ln)
		}
		if joined := strings.TrimSpace(strings.Join(keep, "\n")); joined != "" {
			out = append(out, joined)
		}
	}
	return strings.Join(out, blockSep)
}

// Split partitions the blocks of text into n parts of whole entries. Every
// part but the last gets len(blocks)/n blocks; the last absorbs the
// remainder. With fewer blocks than parts the leading parts are empty.
func Split(text string, n int) []string {
	if n <= 0 {
		n = DefaultParts
	}
	blocks := Blocks(text)
	per := len(blocks) / n

	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		start := i * per
		end := (i + 1) * per
		if i == n-1 {
			end = len(blocks)
		}
		parts = append(parts, strings.TrimSpace(strings.Join(blocks[start:end], blockSep)))
	}
	return parts
}

// Sample returns up to n leading lines of part, used as a preview.
func Sample(part string, n int) string {
	lines := strings.Split(part, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}
