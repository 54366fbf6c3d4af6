package echocommand

import (
	"context"

	"github.com/himanishpuri/EchoCommand/pkg/echocommand/audio"
)

type Service interface {
	Instructions() []string
	HandleUpload(ctx context.Context, req UploadRequest) (*Verdict, error)
	HandleMerge(ctx context.Context, refs []string) (*StoredClip, error)
	ListClips() ([]StoredClip, error)
	ClipCount() (int64, error)
	MatchingEnabled() bool
	MediaDir() string
	Close() error
}

// Oracle decides whether the command expected is present in the utterance actual.
// Both strings are already normalized. A response that cannot be parsed yields
// (false, nil); an unreachable service yields an error wrapping ErrServiceUnavailable.
type Oracle interface {
	Evaluate(ctx context.Context, expected, actual string) (bool, error)
}

// Codec decodes, concatenates and encodes audio.
type Codec interface {
	Empty() audio.Segment
	Decode(ctx context.Context, path string) (audio.Segment, error)
	Concat(a, b audio.Segment) (audio.Segment, error)
	Encode(ctx context.Context, seg audio.Segment, path, format string) error
}

// Prober reports duration information for a stored file. Optional.
type Prober interface {
	Probe(ctx context.Context, path string) (*audio.Metadata, error)
}

type Storage interface {
	RegisterClip(clip StoredClip) error
	GetClip(id string) (*StoredClip, error)
	ListClips() ([]StoredClip, error)
	CountClips() (int64, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
