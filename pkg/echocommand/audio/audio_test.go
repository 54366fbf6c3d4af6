package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
)

func makeSegment(frames, channels, rate int, fill int) *PCMSegment {
	data := make([]int, frames*channels)
	for i := range data {
		data[i] = fill
	}
	return NewPCMSegment(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	})
}

func requireFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
}

func TestPCMSegmentDuration(t *testing.T) {
	tests := []struct {
		name string
		seg  *PCMSegment
		want time.Duration
	}{
		{"empty", NewPCMSegment(nil), 0},
		{"one second mono", makeSegment(48000, 1, 48000, 0), time.Second},
		{"half second stereo", makeSegment(8000, 2, 16000, 0), 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.seg.Duration(); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConcatPreservesOrder(t *testing.T) {
	codec := NewFFmpegCodec(ConvertWAVConfig{}, t.TempDir())

	first := makeSegment(100, 1, 1000, 1)
	second := makeSegment(50, 1, 1000, 2)

	acc, err := codec.Concat(codec.Empty(), first)
	if err != nil {
		t.Fatalf("Concat(empty, first): %v", err)
	}
	acc, err = codec.Concat(acc, second)
	if err != nil {
		t.Fatalf("Concat(acc, second): %v", err)
	}

	pcm := acc.(*PCMSegment)
	if pcm.Frames() != 150 {
		t.Fatalf("expected 150 frames, got %d", pcm.Frames())
	}
	if pcm.Buf.Data[0] != 1 || pcm.Buf.Data[99] != 1 || pcm.Buf.Data[100] != 2 || pcm.Buf.Data[149] != 2 {
		t.Error("samples are not in append order")
	}
	if acc.Duration() != 150*time.Millisecond {
		t.Errorf("unexpected duration %v", acc.Duration())
	}

	// Inputs are not aliased by the result.
	pcm.Buf.Data[0] = 99
	if first.Buf.Data[0] != 1 {
		t.Error("Concat result aliases its input")
	}
}

func TestConcatGrowsAccumulatorInPlace(t *testing.T) {
	codec := NewFFmpegCodec(ConvertWAVConfig{}, t.TempDir())

	clips := make([]*PCMSegment, 40)
	for i := range clips {
		clips[i] = makeSegment(10, 1, 1000, i+1)
	}

	acc, err := codec.Concat(codec.Empty(), clips[0])
	if err != nil {
		t.Fatalf("Concat(empty, clips[0]): %v", err)
	}
	owner := acc.(*PCMSegment)

	for i, clip := range clips[1:] {
		next, err := codec.Concat(acc, clip)
		if err != nil {
			t.Fatalf("Concat(acc, clips[%d]): %v", i+1, err)
		}
		if next.(*PCMSegment) != owner {
			t.Fatalf("clip %d: accumulator was copied instead of extended", i+1)
		}
		acc = next
	}

	pcm := acc.(*PCMSegment)
	if pcm.Frames() != 400 {
		t.Fatalf("expected 400 frames, got %d", pcm.Frames())
	}
	for i := range clips {
		if got := pcm.Buf.Data[i*10]; got != i+1 {
			t.Fatalf("clip %d starts with sample %d", i, got)
		}
	}
	for i, clip := range clips {
		if len(clip.Buf.Data) != 10 || clip.Buf.Data[0] != i+1 {
			t.Fatalf("input clip %d was modified", i)
		}
	}
}

func TestConcatLeavesDecodedLeftSideAlone(t *testing.T) {
	codec := NewFFmpegCodec(ConvertWAVConfig{}, t.TempDir())

	left := makeSegment(20, 1, 1000, 1)
	right := makeSegment(5, 1, 1000, 2)

	out, err := codec.Concat(left, right)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if out.(*PCMSegment) == left {
		t.Fatal("Concat returned its decoded input")
	}
	if left.Frames() != 20 {
		t.Errorf("left side grew to %d frames", left.Frames())
	}
	if out.(*PCMSegment).Frames() != 25 {
		t.Errorf("expected 25 frames, got %d", out.(*PCMSegment).Frames())
	}
}

func TestConcatFormatMismatch(t *testing.T) {
	codec := NewFFmpegCodec(ConvertWAVConfig{}, t.TempDir())
	_, err := codec.Concat(makeSegment(10, 1, 8000, 0), makeSegment(10, 2, 8000, 0))
	if err == nil {
		t.Error("expected an error for mismatched channel counts")
	}
}

type otherSegment struct{}

func (otherSegment) Duration() time.Duration { return time.Second }

func TestConcatRejectsForeignSegments(t *testing.T) {
	codec := NewFFmpegCodec(ConvertWAVConfig{}, t.TempDir())
	if _, err := codec.Concat(codec.Empty(), otherSegment{}); err == nil {
		t.Error("expected an error for an unknown segment type")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.wav")
	codec := NewFFmpegCodec(ConvertWAVConfig{}, dir)

	seg := makeSegment(1600, 1, 16000, 1234)
	if err := codec.Encode(context.Background(), seg, path, "wav"); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	back, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if back.Frames() != 1600 {
		t.Errorf("expected 1600 frames, got %d", back.Frames())
	}
	if back.Buf.Format.SampleRate != 16000 || back.Buf.Format.NumChannels != 1 {
		t.Errorf("unexpected format %+v", back.Buf.Format)
	}
	if back.Buf.Data[0] != 1234 {
		t.Errorf("sample value changed: %d", back.Buf.Data[0])
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".*.tmp*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestEncodeRejectsEmpty(t *testing.T) {
	codec := NewFFmpegCodec(ConvertWAVConfig{}, t.TempDir())
	err := codec.Encode(context.Background(), codec.Empty(), filepath.Join(t.TempDir(), "x.wav"), "wav")
	if err == nil {
		t.Error("expected an error when encoding an empty segment")
	}
}

func TestReadWAVInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("INVALID HEADER DATA"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWAV(path); err == nil {
		t.Error("ReadWAV should fail on invalid file")
	}
	if _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("ReadWAV should fail on a missing file")
	}
}

func TestDecodeAndEncodeMP3(t *testing.T) {
	requireFFmpeg(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	if err := WriteWAV(src, makeSegment(22050, 2, 44100, 100)); err != nil {
		t.Fatal(err)
	}

	codec := NewFFmpegCodec(ConvertWAVConfig{SampleRate: 16000, Channels: 1}, dir)
	seg, err := codec.Decode(context.Background(), src)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	pcm := seg.(*PCMSegment)
	if pcm.Buf.Format.SampleRate != 16000 || pcm.Buf.Format.NumChannels != 1 {
		t.Errorf("Decode did not normalize the format: %+v", pcm.Buf.Format)
	}
	if d := seg.Duration(); d < 450*time.Millisecond || d > 550*time.Millisecond {
		t.Errorf("unexpected decoded duration %v", d)
	}

	out := filepath.Join(dir, "merged.mp3")
	if err := codec.Encode(context.Background(), seg, out, "mp3"); err != nil {
		t.Fatalf("Encode mp3: %v", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		t.Errorf("mp3 output missing or empty: %v", err)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	requireFFmpeg(t)
	codec := NewFFmpegCodec(ConvertWAVConfig{}, t.TempDir())
	if _, err := codec.Decode(context.Background(), filepath.Join(t.TempDir(), "nope.webm")); err == nil {
		t.Error("expected an error decoding a missing file")
	}
}

func TestParseFFprobe(t *testing.T) {
	out := []byte(`{
		"streams": [
			{"codec_type": "video"},
			{"codec_type": "audio", "codec_name": "opus", "sample_rate": "48000", "channels": 1, "duration": "2.500000"}
		],
		"format": {"filename": "/media/a.webm", "format_name": "matroska,webm"}
	}`)

	meta, err := parseFFprobe("/media/a.webm", out)
	if err != nil {
		t.Fatalf("parseFFprobe: %v", err)
	}
	if meta.DurationMs() != 2500 {
		t.Errorf("expected 2500 ms from stream duration, got %d", meta.DurationMs())
	}
	if meta.SampleRate != 48000 || meta.Channels != 1 || meta.Codec != "opus" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Filename != "a.webm" {
		t.Errorf("unexpected filename %q", meta.Filename)
	}

	if _, err := parseFFprobe("x", []byte(`{"streams": [], "format": {}}`)); err == nil {
		t.Error("expected an error when no audio stream is present")
	}
}
