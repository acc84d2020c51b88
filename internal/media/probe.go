package media

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultProbeTimeout = 5 * time.Second

// ErrNoDuration is returned when the prober output carries no usable duration.
var ErrNoDuration = errors.New("no duration found")

// Prober extracts the duration of a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (time.Duration, error)
}

// FFProbe runs the ffprobe binary.
type FFProbe struct {
	Binary  string
	Timeout time.Duration
}

// Probe returns the container duration of path.
func (p FFProbe) Probe(ctx context.Context, path string) (time.Duration, error) {
	binary := p.Binary
	if binary == "" {
		binary = "ffprobe"
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec
	cmd := exec.CommandContext(ctx, binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, errors.Wrapf(err, "running %s", binary)
	}

	return parseFFProbe(out)
}

func parseFFProbe(out []byte) (time.Duration, error) {
	var doc struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}

	if err := json.Unmarshal(out, &doc); err != nil {
		return 0, errors.Wrap(err, "decoding ffprobe output")
	}

	val := strings.TrimSpace(doc.Format.Duration)
	if val == "" || val == "N/A" {
		return 0, ErrNoDuration
	}

	secs, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parsing duration")
	}

	if secs < 0 {
		return 0, ErrNoDuration
	}

	return time.Duration(secs * float64(time.Second)), nil
}
