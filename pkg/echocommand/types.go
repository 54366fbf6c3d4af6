package echocommand

import (
	"io"
	"time"
)

// ClipKind tells uploaded recordings apart from merge outputs.
type ClipKind string

const (
	ClipUpload ClipKind = "upload"
	ClipMerged ClipKind = "merged"
)

// StoredClip is an audio file persisted under the media root.
type StoredClip struct {
	ID               string    // UUID, also part of the file name
	FileName         string    // Base name inside the media root
	Path             string    // Local path
	URL              string    // Public reference, e.g. /media/<name>
	Kind             ClipKind  // upload or merged
	Format           string    // Container format, e.g. webm or mp3
	SizeBytes        int64     // Size on disk
	DurationMs       int       // Best-effort duration, 0 when unknown
	InstructionIndex int       // Instruction attempted (uploads only, -1 otherwise)
	Sources          []string  // Source references actually used (merges only)
	CreatedAt        time.Time // Creation time
}

// UploadRequest is one attempt at an instruction.
type UploadRequest struct {
	Transcript string    // Raw speech-to-text output
	Index      int       // Zero-based instruction index
	Audio      io.Reader // Recorded utterance
}

// Verdict is the outcome of an upload.
type Verdict struct {
	IsMatch            bool
	AudioURL           string
	ExpectedNormalized string
	ActualNormalized   string
}
