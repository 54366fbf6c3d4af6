package echocommand

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/himanishpuri/EchoCommand/pkg/echocommand/audio"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand/text"
	"github.com/himanishpuri/EchoCommand/pkg/logger"
	"github.com/himanishpuri/EchoCommand/pkg/utils"
)

var extPattern = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

// echoService is the default implementation of the Service interface.
type echoService struct {
	registry *Registry
	oracle   Oracle
	codec    Codec
	prober   Prober
	storage  Storage
	log      Logger
	config   *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	cfg.MediaURLPrefix = "/" + strings.Trim(cfg.MediaURLPrefix, "/") + "/"
	if cfg.MediaURLPrefix == "//" {
		cfg.MediaURLPrefix = "/"
	}
	if !extPattern.MatchString(cfg.UploadExt) {
		return nil, fmt.Errorf("invalid upload extension %q", cfg.UploadExt)
	}
	if cfg.MergedFormat == "" {
		return nil, fmt.Errorf("merged format is required")
	}

	if err := utils.MakeDir(cfg.MediaDir); err != nil {
		return nil, fmt.Errorf("%w: creating media dir: %v", ErrStorage, err)
	}

	if cfg.Codec == nil {
		cfg.Codec = audio.NewFFmpegCodec(cfg.Audio, cfg.TempDir)
	}
	if cfg.Prober == nil {
		cfg.Prober = audio.FFProbe{}
	}

	stor := cfg.Storage
	if stor == nil {
		var err error
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &echoService{
		registry: NewRegistry(cfg.Instructions),
		oracle:   cfg.Oracle,
		codec:    cfg.Codec,
		prober:   cfg.Prober,
		storage:  stor,
		log:      cfg.Logger,
		config:   cfg,
	}, nil
}

func (s *echoService) Instructions() []string {
	return s.registry.All()
}

func (s *echoService) MatchingEnabled() bool {
	return s.oracle != nil
}

func (s *echoService) MediaDir() string {
	return s.config.MediaDir
}

// HandleUpload stores the recording, then asks the oracle whether the transcript
// contains the instruction at req.Index. The stored file is kept whatever
// happens after it was written. The file always gets the configured upload
// extension, never one chosen by the caller.
func (s *echoService) HandleUpload(ctx context.Context, req UploadRequest) (*Verdict, error) {
	if s.oracle == nil {
		return nil, ErrNotConfigured
	}
	if req.Audio == nil {
		return nil, fmt.Errorf("%w: audio is required", ErrInvalidRequest)
	}

	ext := s.config.UploadExt
	id, name := utils.UniqueFileName("", ext)
	path := filepath.Join(s.config.MediaDir, name)

	size, err := writeFile(path, req.Audio)
	if err != nil {
		s.log.Errorf("Error saving audio file %s: %v", path, err)
		return nil, fmt.Errorf("%w: saving audio: %v", ErrStorage, err)
	}
	s.log.Infof("Audio saved to: %s (%s)", path, humanize.Bytes(uint64(size)))

	audioURL := s.publicURL(name)
	s.registerClip(ctx, StoredClip{
		ID:               id,
		FileName:         name,
		Path:             path,
		URL:              audioURL,
		Kind:             ClipUpload,
		Format:           strings.TrimPrefix(ext, "."),
		SizeBytes:        size,
		InstructionIndex: req.Index,
	})

	expected, err := s.registry.At(req.Index)
	if err != nil {
		return nil, err
	}

	normExpected := text.Normalize(expected)
	normActual := text.Normalize(req.Transcript)
	s.log.Debugf("User (clean): '%s'", normActual)
	s.log.Debugf("Expected (clean): '%s'", normExpected)

	match, err := s.oracle.Evaluate(ctx, normExpected, normActual)
	if err != nil {
		s.log.Errorf("Oracle call failed for instruction %d: %v", req.Index, err)
		return nil, fmt.Errorf("evaluating guess: %w", err)
	}

	s.log.Infof("Oracle decided: %t for command '%s' in utterance '%s'", match, normExpected, normActual)
	return &Verdict{
		IsMatch:            match,
		AudioURL:           audioURL,
		ExpectedNormalized: normExpected,
		ActualNormalized:   normActual,
	}, nil
}

// HandleMerge concatenates the referenced clips in order into one new file.
// References that do not resolve to an existing file are skipped.
func (s *echoService) HandleMerge(ctx context.Context, refs []string) (*StoredClip, error) {
	if len(refs) == 0 {
		return nil, ErrEmptyMerge
	}

	acc := s.codec.Empty()
	used := make([]string, 0, len(refs))

	for _, ref := range refs {
		path, ok := s.resolveRef(ref)
		if !ok {
			s.log.Warnf("Reference outside media root, skipping: %s", ref)
			continue
		}
		if !utils.FileExists(path) {
			s.log.Warnf("File not found, skipping: %s", path)
			continue
		}

		seg, err := s.codec.Decode(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMergeFailure, err)
		}
		acc, err = s.codec.Concat(acc, seg)
		if err != nil {
			return nil, fmt.Errorf("%w: appending %s: %v", ErrMergeFailure, filepath.Base(path), err)
		}
		used = append(used, ref)
	}

	if acc.Duration() <= 0 {
		return nil, ErrNothingProcessed
	}

	id, name := utils.UniqueFileName("merged_", s.config.MergedFormat)
	path := filepath.Join(s.config.MediaDir, name)

	if err := s.codec.Encode(ctx, acc, path, s.config.MergedFormat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMergeFailure, err)
	}

	clip := StoredClip{
		ID:               id,
		FileName:         name,
		Path:             path,
		URL:              s.publicURL(name),
		Kind:             ClipMerged,
		Format:           s.config.MergedFormat,
		DurationMs:       int(acc.Duration() / time.Millisecond),
		InstructionIndex: -1,
		Sources:          used,
		CreatedAt:        time.Now(),
	}
	if info, err := os.Stat(path); err == nil {
		clip.SizeBytes = info.Size()
	}
	if err := s.storage.RegisterClip(clip); err != nil {
		s.log.Warnf("Failed to register merged clip %s: %v", name, err)
	}

	s.log.Infof("Successfully merged %d/%d clips to: %s (%s)", len(used), len(refs), clip.URL, acc.Duration())
	return &clip, nil
}

func (s *echoService) ListClips() ([]StoredClip, error) {
	return s.storage.ListClips()
}

func (s *echoService) ClipCount() (int64, error) {
	return s.storage.CountClips()
}

func (s *echoService) Close() error {
	return s.storage.Close()
}

func (s *echoService) publicURL(name string) string {
	return s.config.MediaURLPrefix + name
}

// resolveRef maps a public reference ("/media/x.webm", "media/x.webm" or a full
// URL with that path) onto a file directly inside the media dir.
func (s *echoService) resolveRef(ref string) (string, bool) {
	p := strings.TrimSpace(ref)
	if u, err := url.Parse(p); err == nil && u.Path != "" {
		p = u.Path
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	name, ok := strings.CutPrefix(p, s.config.MediaURLPrefix)
	if !ok || name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return filepath.Join(s.config.MediaDir, name), true
}

// registerClip records an upload in the clip registry. Failures only log.
func (s *echoService) registerClip(ctx context.Context, clip StoredClip) {
	clip.CreatedAt = time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if meta, err := s.prober.Probe(probeCtx, clip.Path); err != nil {
		s.log.Debugf("Could not probe %s: %v", clip.FileName, err)
	} else {
		clip.DurationMs = meta.DurationMs()
	}

	if err := s.storage.RegisterClip(clip); err != nil {
		s.log.Warnf("Failed to register clip %s: %v", clip.FileName, err)
	}
}

func writeFile(path string, r io.Reader) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}
