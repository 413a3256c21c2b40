package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os/exec"
)

// Runner executes a tool with an argument list. stdout may be nil; the
// returned bytes are the tool's stderr.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if stdout != nil {
		cmd.Stdout = stdout
	}
	err := cmd.Run()
	return stderr.Bytes(), err
}

// tail keeps the last n bytes of diagnostic output.
func tail(b []byte, n int) string {
	b = bytes.TrimSpace(b)
	if len(b) > n {
		b = b[len(b)-n:]
		if i := bytes.IndexByte(b, '\n'); i >= 0 && i < len(b)-1 {
			b = b[i+1:]
		}
	}
	return string(b)
}
