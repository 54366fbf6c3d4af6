package main

import (
	"errors"
	"fmt"
	"time"
)

// MaxMergeRefs caps the number of clips in one merge request.
const MaxMergeRefs = 200

// InstructionsResponse is the response for GET /get-instructions
type InstructionsResponse struct {
	Instructions []string `json:"instructions"`
}

// CheckGuessResponse is the response for POST /check-text-guess
type CheckGuessResponse struct {
	IsMatch  bool   `json:"is_match"`
	AudioURL string `json:"audio_url"`
}

// MergeRequest is the request body for POST /merge-audio
type MergeRequest struct {
	AudioURLs []string `json:"audio_urls"`
}

// Validate checks if the request is valid
func (r *MergeRequest) Validate() error {
	if len(r.AudioURLs) == 0 {
		return errors.New("No audio files provided for merging.")
	}
	if len(r.AudioURLs) > MaxMergeRefs {
		return fmt.Errorf("too many audio files: %d (maximum: %d)", len(r.AudioURLs), MaxMergeRefs)
	}
	return nil
}

// MergeResponse is the response for POST /merge-audio
type MergeResponse struct {
	MergedAudioURL string `json:"merged_audio_url"`
}

// ClipDTO represents a stored clip in API responses
type ClipDTO struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	Kind             string    `json:"kind"`
	Format           string    `json:"format"`
	SizeBytes        int64     `json:"size_bytes"`
	Size             string    `json:"size"`
	DurationMs       int       `json:"duration_ms"`
	InstructionIndex *int      `json:"instruction_index,omitempty"`
	Sources          []string  `json:"sources,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ListClipsResponse is the response for GET /api/clips
type ListClipsResponse struct {
	Clips []ClipDTO `json:"clips"`
	Count int       `json:"count"`
}

// MetricsResponse provides server health, media disk and registry metrics
type MetricsResponse struct {
	Status          string  `json:"status"`
	DatabasePath    string  `json:"database_path"`
	MediaDir        string  `json:"media_dir"`
	ClipCount       int64   `json:"clip_count"`
	OracleProvider  string  `json:"oracle_provider"`
	MatchingEnabled bool    `json:"matching_enabled"`
	DiskTotal       string  `json:"disk_total,omitempty"`
	DiskFree        string  `json:"disk_free,omitempty"`
	DiskUsedPercent float64 `json:"disk_used_percent,omitempty"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}
