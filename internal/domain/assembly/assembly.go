package assembly

import (
	"fmt"
	"strings"

	"github.com/forPelevin/reelcut/internal/types"
)

const DefaultExt = "mp4"

type Options struct {
	// GroupSize <= 0 renders every clip into one timeline.
	GroupSize int
	Base      string
	Ext       string
}

// Assemble partitions clips into timelines, keeping input order.
func Assemble(clips []types.Clip, opts Options) []types.Timeline {
	if len(clips) == 0 {
		return nil
	}
	ext := strings.TrimPrefix(opts.Ext, ".")
	if ext == "" {
		ext = DefaultExt
	}
	if opts.GroupSize <= 0 {
		return []types.Timeline{{Index: 0, Name: TrimmedName(opts.Base, ext), Clips: clips}}
	}
	var out []types.Timeline
	for i := 0; i < len(clips); i += opts.GroupSize {
		j := i + opts.GroupSize
		if j > len(clips) {
			j = len(clips)
		}
		idx := len(out)
		out = append(out, types.Timeline{
			Index: idx,
			Name:  GroupName(opts.Base, idx+1, ext),
			Clips: clips[i:j:j],
		})
	}
	return out
}

func TrimmedName(base, ext string) string {
	return fmt.Sprintf("%s_trimmed.%s", base, ext)
}

func GroupName(base string, i int, ext string) string {
	return fmt.Sprintf("%s_part_%d.%s", base, i, ext)
}

func PartName(base string, i int, ext string) string {
	return fmt.Sprintf("%s_part%d.%s", base, i, ext)
}

func ArchiveName(base string) string {
	return base + "_clips.zip"
}

// TotalDuration is the output length of a timeline.
func TotalDuration(tl types.Timeline) float64 {
	var d float64
	for _, c := range tl.Clips {
		d += c.Duration
	}
	return d
}
