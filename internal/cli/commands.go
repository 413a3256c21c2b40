package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/forPelevin/reelcut/internal/domain/subtitles"
	"github.com/forPelevin/reelcut/internal/pipeline"
	"github.com/forPelevin/reelcut/internal/progress"
	"github.com/forPelevin/reelcut/internal/types"
	"github.com/forPelevin/reelcut/internal/usecase"
	"github.com/forPelevin/reelcut/internal/workspace"
)

func (a *app) splitCommand() *cobra.Command {
	var (
		out      string
		parts    int
		clean    bool
		stream   int
		anyCodec bool
	)
	cmd := &cobra.Command{
		Use:   "split <media>",
		Short: "Extract the subtitle track and split it into parts",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			media, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("parts") {
				parts = a.cfg.Subtitles.Parts
			}
			if err := a.cfg.CheckParts(parts); err != nil {
				return usageError{fmt.Errorf("--%w", err)}
			}
			sel := a.cfg.StreamSelector()
			if cmd.Flags().Changed("stream") {
				sel.Index = stream
			}
			if cmd.Flags().Changed("any-codec") {
				sel.AnyCodec = anyCodec
			}

			id := uuid.NewString()
			dir := workspace.RunDir(out, media, time.Now())
			runner, stop := a.runner(id)
			m, err := runner.Split(cmd.Context(), pipeline.SplitRequest{
				JobID:    id,
				Media:    media,
				OutDir:   dir,
				Parts:    parts,
				Clean:    clean,
				Selector: sel,
			})
			stop()
			if err != nil {
				return err
			}
			a.printManifest(dir, m)
			if m.Sample != "" {
				fmt.Fprintf(a.stdout, "\nsample:\n%s\n", m.Sample)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&out, "out", "out", "Output directory")
	f.IntVar(&parts, "parts", 0, "Number of parts (default from config)")
	f.BoolVar(&clean, "clean", false, "Strip sequence numbers and write .txt parts")
	f.IntVar(&stream, "stream", -1, "Subtitle stream index (-1 picks by codec)")
	f.BoolVar(&anyCodec, "any-codec", false, "Fall back to any text subtitle stream")
	return cmd
}

func (a *app) trimCommand() *cobra.Command {
	var (
		out          string
		transcript   string
		group        int
		archive      bool
		policy       string
		startBias    float64
		duration     float64
		recipes      []string
		selection    string
		seed         int64
		height       int
		audio        bool
		deleteSource bool
	)
	cmd := &cobra.Command{
		Use:   "trim <media> --transcript <file>",
		Short: "Render highlight clips at the transcript's timestamps",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if transcript == "" {
				return usageError{errors.New("--transcript is required")}
			}
			media, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			cfg := *a.cfg
			fl := cmd.Flags()
			if fl.Changed("group") {
				cfg.Clips.GroupSize = group
			}
			if fl.Changed("archive") {
				cfg.Clips.Archive = archive
			}
			if fl.Changed("policy") {
				cfg.Clips.Policy = strings.ToLower(policy)
			}
			if fl.Changed("start-bias") {
				cfg.Clips.StartBias = startBias
			}
			if fl.Changed("duration") {
				cfg.Clips.Duration = duration
			}
			if fl.Changed("recipes") {
				cfg.Transform.Recipes = recipes
			}
			if fl.Changed("selection") {
				cfg.Transform.Selection = strings.ToLower(selection)
			}
			if fl.Changed("seed") {
				cfg.Transform.Seed = seed
			}
			if fl.Changed("height") {
				cfg.Output.TargetHeight = height
			}
			if fl.Changed("audio") {
				cfg.Output.IncludeAudio = audio
			}
			if fl.Changed("delete-source") {
				cfg.Cleanup.DeleteSource = deleteSource
			}
			if err := cfg.Validate(); err != nil {
				return usageError{err}
			}
			params, err := cfg.ClipParams()
			if err != nil {
				return usageError{err}
			}
			sel, err := cfg.Selector()
			if err != nil {
				return usageError{err}
			}
			text, err := readInput(cmd.InOrStdin(), transcript)
			if err != nil {
				return err
			}

			id := uuid.NewString()
			dir := workspace.RunDir(out, media, time.Now())
			runner, stop := a.runner(id)
			m, err := runner.Trim(cmd.Context(), pipeline.TrimRequest{
				JobID:        id,
				Media:        media,
				Transcript:   text,
				OutDir:       dir,
				Clips:        params,
				Selector:     sel,
				Profile:      cfg.Profile(),
				GroupSize:    cfg.Clips.GroupSize,
				Archive:      cfg.Clips.Archive,
				DeleteSource: cfg.Cleanup.DeleteSource,
			})
			stop()
			if err != nil {
				return err
			}
			for _, w := range m.Dropped {
				fmt.Fprintf(a.stderr, "dropped offset %s: starts past the end of the media\n", subtitles.Clock(time.Duration(w.Offset*float64(time.Second))))
			}
			a.printManifest(dir, m)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&out, "out", "out", "Output directory")
	f.StringVarP(&transcript, "transcript", "t", "", "Transcript file, one timestamped line per clip (- for stdin)")
	f.IntVar(&group, "group", 0, "Clips per output file, 0 renders one file")
	f.BoolVar(&archive, "archive", false, "Zip grouped outputs")
	f.StringVar(&policy, "policy", "", "Out-of-range windows: drop or fail")
	f.Float64Var(&startBias, "start-bias", 0, "Seconds added to each timestamp to get the clip start")
	f.Float64Var(&duration, "duration", 0, "Clip length in source seconds")
	f.StringSliceVar(&recipes, "recipes", nil, "Transform recipes to use")
	f.StringVar(&selection, "selection", "", "Recipe selection: fixed, cycle or random")
	f.Int64Var(&seed, "seed", 0, "Seed for random recipe selection")
	f.IntVar(&height, "height", 0, "Output height")
	f.BoolVar(&audio, "audio", false, "Keep the audio track")
	f.BoolVar(&deleteSource, "delete-source", false, "Remove the source media after a successful trim")
	return cmd
}

func (a *app) transcriptCommand() *cobra.Command {
	var (
		out    string
		stream int
	)
	cmd := &cobra.Command{
		Use:   "transcript <subtitles|media>",
		Short: "Print subtitles as raw \"HH:MM:SS,mmm - text\" lines",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := a.usecase()
			var (
				lines []string
				err   error
			)
			if usecase.IsSubtitleFile(args[0]) {
				lines, err = uc.Transcript(args[0])
			} else {
				sel := a.cfg.StreamSelector()
				if cmd.Flags().Changed("stream") {
					sel.Index = stream
				}
				var tmp string
				tmp, err = os.MkdirTemp("", "reelcut-transcript-")
				if err != nil {
					return err
				}
				defer os.RemoveAll(tmp)
				lines, err = uc.MediaTranscript(cmd.Context(), args[0], sel, tmp)
			}
			if err != nil {
				return err
			}
			return writeLines(a.stdout, out, lines)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to file instead of stdout")
	cmd.Flags().IntVar(&stream, "stream", -1, "Subtitle stream index when reading media")
	return cmd
}

func (a *app) narrateCommand() *cobra.Command {
	var (
		out       string
		language  string
		chunkSize int
	)
	cmd := &cobra.Command{
		Use:   "narrate <raw-transcript>",
		Short: "Condense a raw transcript into timestamped narration lines",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Narration.APIKey == "" {
				return errors.New("OPENROUTER_API_KEY is required (set it in .env)")
			}
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			n := a.cfg.Narration
			if cmd.Flags().Changed("language") {
				n.Language = language
			}
			if cmd.Flags().Changed("chunk-size") {
				n.ChunkSize = chunkSize
			}
			id := uuid.NewString()
			tracker := progress.NewTracker()
			stop := a.watch(tracker, id)
			res, err := a.usecase().Narrate(cmd.Context(), usecase.NarrateInput{
				Lines:         splitLines(text),
				Language:      n.Language,
				ChunkSize:     n.ChunkSize,
				Concurrency:   n.Concurrency,
				RatePerMinute: n.RatePerMinute,
				FallbackLines: n.FallbackLines,
			}, tracker.Begin(id))
			stop()
			if err != nil {
				return err
			}
			if len(res.FailedChunks) > 0 {
				a.log.Warn("some chunks fell back to scored lines", "chunks", res.FailedChunks)
			}
			return writeLines(a.stdout, out, res.Lines)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringVar(&language, "language", "", "Narration language (default from config)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Transcript lines per request (default from config)")
	return cmd
}

// runner builds a store-less runner whose progress is echoed to stderr.
func (a *app) runner(id string) (*pipeline.Runner, func()) {
	tracker := progress.NewTracker()
	stop := a.watch(tracker, id)
	return &pipeline.Runner{UC: a.usecase(), Tracker: tracker, Log: a.log}, stop
}

func (a *app) printManifest(dir string, m types.Manifest) {
	for _, art := range m.Artifacts {
		fmt.Fprintln(a.stdout, filepath.Join(dir, art.File))
	}
	if m.Archive != "" {
		fmt.Fprintln(a.stdout, filepath.Join(dir, m.Archive))
	}
}

func readInput(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func splitLines(text string) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func writeLines(stdout io.Writer, path string, lines []string) error {
	body := strings.Join(lines, "\n")
	if len(lines) > 0 {
		body += "\n"
	}
	if path == "" {
		_, err := io.WriteString(stdout, body)
		return err
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
