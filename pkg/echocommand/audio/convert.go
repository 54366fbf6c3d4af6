package audio

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

type ConvertWAVConfig struct {
	SampleRate int // e.g. 16000, 44100, 48000
	Channels   int // 1 = mono, 2 = stereo
}

func (c ConvertWAVConfig) withDefaults() ConvertWAVConfig {
	if c.SampleRate == 0 {
		c.SampleRate = 48000
	}
	if c.Channels == 0 {
		c.Channels = 1
	}
	return c
}

// ConvertToPCMWAV decodes any container ffmpeg understands into 16-bit PCM WAV
// at outputPath.
func ConvertToPCMWAV(ctx context.Context, inputPath, outputPath string, cfg ConvertWAVConfig) error {
	cfg = cfg.withDefaults()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return runFFmpeg(ctx,
		"-i", inputPath,
		"-vn",
		"-ac", fmt.Sprintf("%d", cfg.Channels),
		"-ar", fmt.Sprintf("%d", cfg.SampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outputPath,
	)
}

// TranscodeWAV encodes a WAV file into format (mp3, ogg, ...) at outputPath.
func TranscodeWAV(ctx context.Context, wavPath, outputPath, format string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
	}

	args := []string{"-i", wavPath}
	switch format {
	case "mp3":
		args = append(args, "-c:a", "libmp3lame", "-q:a", "2")
	case "ogg":
		args = append(args, "-c:a", "libvorbis")
	}
	args = append(args, "-f", format, outputPath)

	return runFFmpeg(ctx, args...)
}

func runFFmpeg(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", append([]string{"-y", "-v", "error"}, args...)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}
	return nil
}
