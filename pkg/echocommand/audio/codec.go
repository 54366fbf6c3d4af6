package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/EchoCommand/pkg/utils"
)

const pcmBitDepth = 16

// FFmpegCodec decodes through ffmpeg into go-audio PCM buffers and encodes back
// out through go-audio/wav (and ffmpeg for compressed formats).
type FFmpegCodec struct {
	cfg     ConvertWAVConfig
	tempDir string
}

func NewFFmpegCodec(cfg ConvertWAVConfig, tempDir string) *FFmpegCodec {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &FFmpegCodec{cfg: cfg.withDefaults(), tempDir: tempDir}
}

func (c *FFmpegCodec) Empty() Segment {
	return NewPCMSegment(nil)
}

// Decode converts path to PCM WAV with the codec's fixed rate/channels and loads it.
func (c *FFmpegCodec) Decode(ctx context.Context, path string) (Segment, error) {
	if err := utils.MakeDir(c.tempDir); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(c.tempDir, "decode-*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating temp wav: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := ConvertToPCMWAV(ctx, path, tmpPath, c.cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}

	return ReadWAV(tmpPath)
}

func (c *FFmpegCodec) Concat(a, b Segment) (Segment, error) {
	pa, ok := a.(*PCMSegment)
	if !ok {
		return nil, fmt.Errorf("unsupported segment type %T", a)
	}
	pb, ok := b.(*PCMSegment)
	if !ok {
		return nil, fmt.Errorf("unsupported segment type %T", b)
	}
	return appendPCM(pa, pb)
}

// Encode writes seg to path. "wav" is written directly; other formats go
// through ffmpeg. The output appears atomically via rename.
func (c *FFmpegCodec) Encode(ctx context.Context, seg Segment, path, format string) error {
	pcm, ok := seg.(*PCMSegment)
	if !ok {
		return fmt.Errorf("unsupported segment type %T", seg)
	}
	if pcm.Frames() == 0 {
		return fmt.Errorf("refusing to encode an empty segment")
	}

	dir := filepath.Dir(path)
	wavTmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp.wav")
	defer utils.RemoveIfExists(wavTmp)

	if err := WriteWAV(wavTmp, pcm); err != nil {
		return err
	}

	if format == "wav" {
		return utils.MoveFile(wavTmp, path)
	}

	outTmp := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	defer utils.RemoveIfExists(outTmp)

	if err := TranscodeWAV(ctx, wavTmp, outTmp, format); err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return utils.MoveFile(outTmp, path)
}

// ReadWAV loads a PCM WAV file into a segment.
func ReadWAV(path string) (*PCMSegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", filepath.Base(path))
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading PCM data: %w", err)
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(dec.BitDepth)
	}
	return NewPCMSegment(buf), nil
}

// WriteWAV stores seg as 16-bit PCM WAV.
func WriteWAV(path string, seg *PCMSegment) error {
	if seg.Frames() == 0 {
		return fmt.Errorf("empty segment")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	format := seg.Buf.Format
	depth := seg.Buf.SourceBitDepth
	if depth == 0 {
		depth = pcmBitDepth
	}

	enc := wav.NewEncoder(f, format.SampleRate, depth, format.NumChannels, 1)
	if err := enc.Write(&goaudio.IntBuffer{Format: format, Data: seg.Buf.Data, SourceBitDepth: depth}); err != nil {
		return fmt.Errorf("writing PCM data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing WAV: %w", err)
	}
	return nil
}
