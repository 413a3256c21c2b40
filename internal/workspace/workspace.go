package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	ErrInvalidID   = errors.New("invalid id")
	ErrInvalidName = errors.New("invalid file name")
	ErrNotExist    = errors.New("no such file")
)

// Workspace owns <root>/jobs/<uuid> output directories and
// <root>/media/<uuid> upload directories.
type Workspace struct {
	root string
}

func New(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is empty")
	}
	for _, d := range []string{"jobs", "media"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", d, err)
		}
	}
	return &Workspace{root: root}, nil
}

func (w *Workspace) Root() string { return w.root }

// NewJob allocates a fresh job directory.
func (w *Workspace) NewJob() (string, string, error) {
	return w.alloc("jobs")
}

// JobDir returns the directory of an existing job.
func (w *Workspace) JobDir(id string) (string, error) {
	return w.existing("jobs", id)
}

func (w *Workspace) RemoveJob(id string) error {
	return w.remove("jobs", id)
}

// SaveMedia stores an upload under a new media ID and returns the ID and
// the stored path.
func (w *Workspace) SaveMedia(name string, r io.Reader) (string, string, error) {
	clean, err := SanitizeName(name)
	if err != nil {
		return "", "", err
	}
	id, dir, err := w.alloc("media")
	if err != nil {
		return "", "", err
	}
	dst := filepath.Join(dir, clean)
	tmp := dst + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return "", "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.RemoveAll(dir)
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.RemoveAll(dir)
		return "", "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.RemoveAll(dir)
		return "", "", fmt.Errorf("finalize upload: %w", err)
	}
	return id, dst, nil
}

// Media resolves a media ID to the single stored upload.
func (w *Workspace) Media(id string) (string, error) {
	dir, err := w.existing("media", id)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read media %s: %w", id, err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasSuffix(e.Name(), ".partial") {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("media %s: %w", id, ErrNotExist)
}

func (w *Workspace) RemoveMedia(id string) error {
	return w.remove("media", id)
}

// MediaID returns the upload ID owning path, if path lies inside a media
// directory of this workspace.
func (w *Workspace) MediaID(path string) (string, bool) {
	rel, err := filepath.Rel(filepath.Join(w.root, "media"), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	id, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return id, validID(id)
}

// File resolves name inside a job directory. Only plain names are
// accepted so a request can never escape the job.
func (w *Workspace) File(jobID, name string) (string, error) {
	dir, err := w.JobDir(jobID)
	if err != nil {
		return "", err
	}
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	p := filepath.Join(dir, name)
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%s/%s: %w", jobID, name, ErrNotExist)
	}
	return p, nil
}

// StaleMedia lists media IDs whose directory was last modified before
// cutoff.
func (w *Workspace) StaleMedia(cutoff time.Time) ([]string, error) {
	return w.stale("media", cutoff)
}

// StaleJobs lists job directories last modified before cutoff.
func (w *Workspace) StaleJobs(cutoff time.Time) ([]string, error) {
	return w.stale("jobs", cutoff)
}

func (w *Workspace) stale(kind string, cutoff time.Time) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(w.root, kind))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || !validID(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (w *Workspace) alloc(kind string) (string, string, error) {
	id := uuid.NewString()
	dir := filepath.Join(w.root, kind, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create %s dir: %w", kind, err)
	}
	return id, dir, nil
}

func (w *Workspace) existing(kind, id string) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("%q: %w", id, ErrInvalidID)
	}
	dir := filepath.Join(w.root, kind, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%s %s: %w", strings.TrimSuffix(kind, "s"), id, ErrNotExist)
	}
	return dir, nil
}

func (w *Workspace) remove(kind, id string) error {
	if !validID(id) {
		return fmt.Errorf("%q: %w", id, ErrInvalidID)
	}
	if err := os.RemoveAll(filepath.Join(w.root, kind, id)); err != nil {
		return fmt.Errorf("remove %s %s: %w", kind, id, err)
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// SanitizeName keeps an upload's extension and reduces its stem to a
// lowercase dash-separated segment.
func SanitizeName(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(name))
	stem := normalizePathSegment(strings.TrimSuffix(name, filepath.Ext(name)))
	if stem == "" {
		stem = "input"
	}
	ext = "." + normalizePathSegment(strings.TrimPrefix(ext, "."))
	if ext == "." {
		return "", fmt.Errorf("%q has no extension: %w", name, ErrInvalidName)
	}
	return stem + ext, nil
}

// RunDir names a CLI output directory: <outRoot>/<name>-<utc>-<hash6>.
func RunDir(outRoot, input string, now time.Time) string {
	name := normalizePathSegment(strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)))
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	seed := fmt.Sprintf("%s|%d", input, now.UTC().UnixNano())
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, hash(seed)[:6]))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
