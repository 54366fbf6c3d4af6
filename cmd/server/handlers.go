package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/himanishpuri/EchoCommand/pkg/echocommand"
	"github.com/himanishpuri/EchoCommand/pkg/logger"
)

const (
	maxUploadBytes = 50 << 20
	maxMergeBody   = 1 << 20
	checkTimeout   = 60 * time.Second
	mergeTimeout   = 5 * time.Minute
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service echocommand.Service
	config  *ServerConfig
	log     echocommand.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	MediaURLPrefix string
	DBPath         string
	OracleProvider string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service echocommand.Service, config *ServerConfig) *Server {
	if config.MediaURLPrefix == "" {
		config.MediaURLPrefix = "/media/"
	}
	config.MediaURLPrefix = "/" + strings.Trim(config.MediaURLPrefix, "/") + "/"

	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error: message,
		Code:  statusCode,
	})
}

// statusForError maps service errors onto an HTTP status and client message.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, echocommand.ErrEmptyMerge):
		return http.StatusBadRequest, "No audio files provided for merging."
	case errors.Is(err, echocommand.ErrInvalidRequest):
		return http.StatusBadRequest, "Invalid request."
	case errors.Is(err, echocommand.ErrOutOfRange):
		return http.StatusBadRequest, "Invalid instruction index."
	case errors.Is(err, echocommand.ErrNotConfigured):
		return http.StatusInternalServerError, "Matching service not configured."
	case errors.Is(err, echocommand.ErrStorage):
		return http.StatusInternalServerError, "Could not save audio file."
	case errors.Is(err, echocommand.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "Failed to communicate with the matching service."
	case errors.Is(err, echocommand.ErrNothingProcessed):
		return http.StatusInternalServerError, "Could not process any of the provided audio files."
	case errors.Is(err, echocommand.ErrMergeFailure):
		return http.StatusInternalServerError, fmt.Sprintf("Failed to merge audio files. Server error: %v", err)
	default:
		return http.StatusInternalServerError, "An internal server error occurred."
	}
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	page, err := fs.ReadFile(webFS, "web/index.html")
	if err != nil {
		s.log.Errorf("Client page missing from build: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Client page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.ClipCount()
	if err != nil {
		s.log.Errorf("Failed to get clip count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	resp := MetricsResponse{
		Status:          "healthy",
		DatabasePath:    s.config.DBPath,
		MediaDir:        s.service.MediaDir(),
		ClipCount:       count,
		OracleProvider:  s.config.OracleProvider,
		MatchingEnabled: s.service.MatchingEnabled(),
	}

	if usage, err := disk.UsageWithContext(r.Context(), s.service.MediaDir()); err != nil {
		s.log.Warnf("Failed to read disk usage for %s: %v", s.service.MediaDir(), err)
	} else {
		resp.DiskTotal = humanize.Bytes(usage.Total)
		resp.DiskFree = humanize.Bytes(usage.Free)
		resp.DiskUsedPercent = usage.UsedPercent
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// handleInstructions handles GET /get-instructions
func (s *Server) handleInstructions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.respondJSON(w, http.StatusOK, InstructionsResponse{Instructions: s.service.Instructions()})
}

// handleCheckGuess handles POST /check-text-guess (multipart: audio, userGuess, currentIndex)
func (s *Server) handleCheckGuess(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	guess, ok := r.MultipartForm.Value["userGuess"]
	if !ok {
		s.respondError(w, http.StatusBadRequest, "userGuess is required")
		return
	}

	index, err := strconv.Atoi(r.FormValue("currentIndex"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "currentIndex must be an integer")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.log.Errorf("Failed to get audio file: %v", err)
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	s.log.Infof("Checking guess for instruction %d (%s)", index, humanize.Bytes(uint64(header.Size)))
	verdict, err := s.service.HandleUpload(ctx, echocommand.UploadRequest{
		Transcript: guess[0],
		Index:      index,
		Audio:      file,
	})
	if err != nil {
		status, msg := statusForError(err)
		if status >= http.StatusInternalServerError {
			s.log.Errorf("Check failed for instruction %d: %v", index, err)
		}
		s.respondError(w, status, msg)
		return
	}

	s.respondJSON(w, http.StatusOK, CheckGuessResponse{
		IsMatch:  verdict.IsMatch,
		AudioURL: verdict.AudioURL,
	})
}

// handleMerge handles POST /merge-audio
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), mergeTimeout)
	defer cancel()

	var req MergeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMergeBody)).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Infof("Merging %d audio files", len(req.AudioURLs))
	clip, err := s.service.HandleMerge(ctx, req.AudioURLs)
	if err != nil {
		status, msg := statusForError(err)
		s.log.Errorf("Merge failed: %v", err)
		s.respondError(w, status, msg)
		return
	}

	s.respondJSON(w, http.StatusOK, MergeResponse{MergedAudioURL: clip.URL})
}

// handleClips handles GET /api/clips
func (s *Server) handleClips(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	clips, err := s.service.ListClips()
	if err != nil {
		s.log.Errorf("Failed to list clips: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve clips")
		return
	}

	dtos := make([]ClipDTO, len(clips))
	for i, c := range clips {
		dtos[i] = ClipDTO{
			ID:         c.ID,
			URL:        c.URL,
			Kind:       string(c.Kind),
			Format:     c.Format,
			SizeBytes:  c.SizeBytes,
			Size:       humanize.Bytes(uint64(c.SizeBytes)),
			DurationMs: c.DurationMs,
			Sources:    c.Sources,
			CreatedAt:  c.CreatedAt,
		}
		if c.Kind == echocommand.ClipUpload {
			idx := c.InstructionIndex
			dtos[i].InstructionIndex = &idx
		}
	}

	s.respondJSON(w, http.StatusOK, ListClipsResponse{Clips: dtos, Count: len(dtos)})
}

// handleCheckGuessRoute routes requests to /check-text-guess
func (s *Server) handleCheckGuessRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleCheckGuess(w, r)
}

// handleMergeRoute routes requests to /merge-audio
func (s *Server) handleMergeRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.handleMerge(w, r)
}
