package usecase

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/forPelevin/reelcut/internal/logging"
	"github.com/forPelevin/reelcut/internal/ports"
)

type Deps struct {
	Prober    ports.Prober
	Subtitles ports.SubtitleExtractor
	Encoder   ports.Encoder
	// Narrator is optional; Narrate fails without it.
	Narrator ports.Narrator
	Log      *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	return Usecase{d: d}
}

// BaseName is the artifact stem for a media path.
func BaseName(media string) string {
	b := filepath.Base(media)
	return strings.TrimSuffix(b, filepath.Ext(b))
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
