package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/starford/othala/internal/vault"
	"github.com/starford/othala/pkg/resolver"
)

const probeTimeout = 10 * time.Second

// VideoResolver supplies playback metadata for video-reference notes.
// Duration and resolution come from ffprobe; when the tool is not installed
// those fields resolve as errors and fall back to schema defaults. Probe
// output is cached per path, since one note resolves several fields.
type VideoResolver struct {
	store vault.Provider

	mu    sync.Mutex
	cache map[string]*probeResult
}

// NewVideoResolver returns a VideoResolver over the given vault.
func NewVideoResolver(store vault.Provider) *VideoResolver {
	return &VideoResolver{store: store, cache: make(map[string]*probeResult)}
}

// FileType implements resolver.FileTyped.
func (*VideoResolver) FileType() string { return "mp4" }

// Resolve implements resolver.Resolver.
func (v *VideoResolver) Resolve(field string, ctx *resolver.Context) (any, error) {
	switch field {
	case "source-file":
		return sourceFile(ctx), nil
	case "file-size":
		return fileSize(v.store, ctx)
	case "video-duration", "video-resolution":
		if ctx == nil || ctx.Path == "" {
			return nil, nil
		}
		// ffprobe needs a real path, not vault-relative.
		abs := filepath.Join(v.store.Root(), filepath.FromSlash(ctx.Path))
		probe, err := v.probe(abs)
		if err != nil {
			return nil, err
		}
		value := probe.resolution()
		if field == "video-duration" {
			value = probe.duration()
		}
		if value == "" {
			return nil, nil
		}
		return value, nil
	}
	return nil, nil
}

func (v *VideoResolver) probe(path string) (*probeResult, error) {
	v.mu.Lock()
	if cached, ok := v.cache[path]; ok {
		v.mu.Unlock()
		return cached, nil
	}
	v.mu.Unlock()

	out, err := runProbe(path)
	if err != nil {
		return nil, err
	}
	probe, err := parseProbe(out)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.cache[path] = probe
	v.mu.Unlock()
	return probe, nil
}

func runProbe(path string) ([]byte, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, fmt.Errorf("resolve: ffprobe not available: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("resolve: ffprobe %s: %w", path, err)
	}
	return out, nil
}

// probeResult is the subset of ffprobe's JSON output the resolver reads.
type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(data []byte) (*probeResult, error) {
	var res probeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("resolve: parse ffprobe output: %w", err)
	}
	return &res, nil
}

// duration renders the container duration as HH:MM:SS, or "" when unknown.
func (r *probeResult) duration() string {
	seconds, err := strconv.ParseFloat(r.Format.Duration, 64)
	if err != nil || seconds < 0 {
		return ""
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// resolution renders the first video stream as WxH, or "" when none exists.
func (r *probeResult) resolution() string {
	for _, stream := range r.Streams {
		if stream.CodecType == "video" && stream.Width > 0 && stream.Height > 0 {
			return fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		}
	}
	return ""
}
