package audio

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

type Metadata struct {
	Filename    string
	DurationSec float64
	SampleRate  int
	Channels    int
	Codec       string
	Format      string
}

// DurationMs rounds DurationSec to whole milliseconds.
func (m *Metadata) DurationMs() int {
	if m == nil {
		return 0
	}
	return int(m.DurationSec*1000 + 0.5)
}

type ffprobeOutput struct {
	Format struct {
		Filename string `json:"filename"`
		Duration string `json:"duration"`
		Format   string `json:"format_name"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
}

func (p *ffprobeOutput) firstAudioStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

// FFProbe reads container metadata with the ffprobe binary.
type FFProbe struct{}

func (FFProbe) Probe(ctx context.Context, path string) (*Metadata, error) {
	return ReadMetadataFFmpeg(ctx, path)
}

func ReadMetadataFFmpeg(ctx context.Context, path string) (*Metadata, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(
		ctx,
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	return parseFFprobe(path, out)
}

func parseFFprobe(path string, out []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, err
	}

	stream := probe.firstAudioStream()
	if stream == nil {
		return nil, errors.New("no audio stream found")
	}

	// Browser-recorded webm often has no container duration; fall back to the stream's.
	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		duration, _ = strconv.ParseFloat(stream.Duration, 64)
	}
	sampleRate, _ := strconv.Atoi(stream.SampleRate)

	return &Metadata{
		Filename:    filepath.Base(path),
		DurationSec: duration,
		SampleRate:  sampleRate,
		Channels:    stream.Channels,
		Codec:       stream.CodecName,
		Format:      probe.Format.Format,
	}, nil
}
