package audio

import (
	"fmt"
	"time"

	goaudio "github.com/go-audio/audio"
)

// Segment is a piece of decoded audio.
type Segment interface {
	Duration() time.Duration
}

// PCMSegment holds interleaved integer PCM samples.
type PCMSegment struct {
	Buf *goaudio.IntBuffer

	// owned marks a buffer built by appendPCM that no caller holds as an input.
	owned bool
}

// NewPCMSegment wraps buf. A nil buf yields an empty segment.
func NewPCMSegment(buf *goaudio.IntBuffer) *PCMSegment {
	return &PCMSegment{Buf: buf}
}

// Frames is the number of sample frames (samples per channel).
func (s *PCMSegment) Frames() int {
	if s == nil || s.Buf == nil || s.Buf.Format == nil || s.Buf.Format.NumChannels == 0 {
		return 0
	}
	return len(s.Buf.Data) / s.Buf.Format.NumChannels
}

func (s *PCMSegment) Duration() time.Duration {
	frames := s.Frames()
	if frames == 0 || s.Buf.Format.SampleRate == 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(s.Buf.Format.SampleRate)
}

// appendPCM plays b right after a. Formats must match unless one side is
// empty. Inputs are never modified, except that a segment previously returned
// by appendPCM is grown in place and handed back, so a merge of N clips copies
// each sample once.
func appendPCM(a, b *PCMSegment) (*PCMSegment, error) {
	if a.Frames() == 0 {
		out := clonePCM(b)
		out.owned = true
		return out, nil
	}
	if b.Frames() == 0 {
		if a.owned {
			return a, nil
		}
		out := clonePCM(a)
		out.owned = true
		return out, nil
	}

	af, bf := a.Buf.Format, b.Buf.Format
	if af.NumChannels != bf.NumChannels || af.SampleRate != bf.SampleRate {
		return nil, fmt.Errorf("format mismatch: %d ch @ %d Hz vs %d ch @ %d Hz",
			af.NumChannels, af.SampleRate, bf.NumChannels, bf.SampleRate)
	}

	out := a
	if !a.owned {
		data := make([]int, len(a.Buf.Data), len(a.Buf.Data)+len(b.Buf.Data))
		copy(data, a.Buf.Data)
		out = &PCMSegment{
			Buf: &goaudio.IntBuffer{
				Format:         &goaudio.Format{NumChannels: af.NumChannels, SampleRate: af.SampleRate},
				Data:           data,
				SourceBitDepth: a.Buf.SourceBitDepth,
			},
			owned: true,
		}
	}

	out.Buf.Data = append(out.Buf.Data, b.Buf.Data...)
	if b.Buf.SourceBitDepth > out.Buf.SourceBitDepth {
		out.Buf.SourceBitDepth = b.Buf.SourceBitDepth
	}
	return out, nil
}

func clonePCM(s *PCMSegment) *PCMSegment {
	if s == nil || s.Buf == nil {
		return NewPCMSegment(nil)
	}
	data := make([]int, len(s.Buf.Data))
	copy(data, s.Buf.Data)
	var format *goaudio.Format
	if s.Buf.Format != nil {
		f := *s.Buf.Format
		format = &f
	}
	return NewPCMSegment(&goaudio.IntBuffer{Format: format, Data: data, SourceBitDepth: s.Buf.SourceBitDepth})
}
