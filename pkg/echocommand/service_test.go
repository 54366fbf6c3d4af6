package echocommand_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/himanishpuri/EchoCommand/pkg/echocommand"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand/audio"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand/oracle"
	"github.com/himanishpuri/EchoCommand/pkg/logger"
)

// fakeSegment is "played" content: the concatenation of decoded file bodies.
type fakeSegment struct{ body string }

func (s fakeSegment) Duration() time.Duration { return time.Duration(len(s.body)) * time.Millisecond }

type fakeCodec struct {
	decoded []string
}

func (c *fakeCodec) Empty() audio.Segment { return fakeSegment{} }

func (c *fakeCodec) Decode(_ context.Context, path string) (audio.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if string(data) == "corrupt" {
		return nil, fmt.Errorf("cannot decode %s", filepath.Base(path))
	}
	c.decoded = append(c.decoded, filepath.Base(path))
	return fakeSegment{body: string(data)}, nil
}

func (c *fakeCodec) Concat(a, b audio.Segment) (audio.Segment, error) {
	return fakeSegment{body: a.(fakeSegment).body + b.(fakeSegment).body}, nil
}

func (c *fakeCodec) Encode(_ context.Context, seg audio.Segment, path, _ string) error {
	return os.WriteFile(path, []byte(seg.(fakeSegment).body), 0o644)
}

type noProber struct{}

func (noProber) Probe(context.Context, string) (*audio.Metadata, error) {
	return nil, errors.New("no prober in tests")
}

type memStorage struct {
	mu    sync.Mutex
	clips []echocommand.StoredClip
}

func (m *memStorage) RegisterClip(clip echocommand.StoredClip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clips = append(m.clips, clip)
	return nil
}

func (m *memStorage) GetClip(id string) (*echocommand.StoredClip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clips {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *memStorage) ListClips() ([]echocommand.StoredClip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]echocommand.StoredClip(nil), m.clips...), nil
}

func (m *memStorage) CountClips() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.clips)), nil
}

func (m *memStorage) Close() error { return nil }

type stubOracle struct {
	result   bool
	err      error
	expected string
	actual   string
}

func (o *stubOracle) Evaluate(_ context.Context, expected, actual string) (bool, error) {
	o.expected, o.actual = expected, actual
	return o.result, o.err
}

type fixture struct {
	svc      echocommand.Service
	mediaDir string
	codec    *fakeCodec
	storage  *memStorage
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, o echocommand.Oracle, opts ...echocommand.Option) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	f := &fixture{
		mediaDir: filepath.Join(t.TempDir(), "media"),
		codec:    &fakeCodec{},
		storage:  &memStorage{},
		logs:     logs,
	}

	base := []echocommand.Option{
		echocommand.WithMediaDir(f.mediaDir),
		echocommand.WithCodec(f.codec),
		echocommand.WithProber(noProber{}),
		echocommand.WithStorage(f.storage),
		echocommand.WithLogger(logger.NewWithCore(core)),
	}
	if o != nil {
		base = append(base, echocommand.WithOracle(o))
	}

	svc, err := echocommand.NewService(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	f.svc = svc
	return f
}

func (f *fixture) mediaFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.mediaDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (f *fixture) writeClip(t *testing.T, name, body string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.mediaDir, name), []byte(body), 0o644))
	return "/media/" + name
}

func TestNewServiceCreatesMediaDir(t *testing.T) {
	f := newFixture(t, nil)
	info, err := os.Stat(f.mediaDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, f.mediaDir, f.svc.MediaDir())
	assert.False(t, f.svc.MatchingEnabled())
	assert.Equal(t, echocommand.DefaultInstructions, f.svc.Instructions())
}

func TestNewServiceRejectsBadExtension(t *testing.T) {
	_, err := echocommand.NewService(
		echocommand.WithMediaDir(t.TempDir()),
		echocommand.WithUploadExt("../x"),
		echocommand.WithStorage(&memStorage{}),
		echocommand.WithLogger(logger.NewNop()),
	)
	assert.Error(t, err)
}

func TestHandleUploadMatch(t *testing.T) {
	o := &stubOracle{result: true}
	f := newFixture(t, o)

	v, err := f.svc.HandleUpload(context.Background(), echocommand.UploadRequest{
		Transcript: "Um, DON'T look back!",
		Index:      4,
		Audio:      strings.NewReader("recording"),
	})
	require.NoError(t, err)

	assert.True(t, v.IsMatch)
	assert.Equal(t, "do not look back", o.expected)
	assert.Equal(t, "um do not look back", o.actual)
	assert.Equal(t, o.expected, v.ExpectedNormalized)
	assert.Equal(t, o.actual, v.ActualNormalized)

	require.True(t, strings.HasPrefix(v.AudioURL, "/media/"))
	require.True(t, strings.HasSuffix(v.AudioURL, ".webm"))
	name := strings.TrimPrefix(v.AudioURL, "/media/")
	data, err := os.ReadFile(filepath.Join(f.mediaDir, name))
	require.NoError(t, err)
	assert.Equal(t, "recording", string(data))

	clips, err := f.svc.ListClips()
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, echocommand.ClipUpload, clips[0].Kind)
	assert.Equal(t, int64(len("recording")), clips[0].SizeBytes)
	assert.Equal(t, 4, clips[0].InstructionIndex)
}

func TestHandleUploadUniqueNames(t *testing.T) {
	f := newFixture(t, &stubOracle{})
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		v, err := f.svc.HandleUpload(context.Background(), echocommand.UploadRequest{
			Transcript: "x", Index: 1, Audio: strings.NewReader("a"),
		})
		require.NoError(t, err)
		assert.False(t, seen[v.AudioURL], "duplicate url %s", v.AudioURL)
		seen[v.AudioURL] = true
	}
	assert.Len(t, f.mediaFiles(t), 5)
}

func TestHandleUploadUsesConfiguredExtension(t *testing.T) {
	f := newFixture(t, &stubOracle{}, echocommand.WithUploadExt(".ogg"))

	v, err := f.svc.HandleUpload(context.Background(), echocommand.UploadRequest{
		Transcript: "keep going",
		Index:      9,
		Audio:      strings.NewReader("<svg onload=alert(1)>"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(v.AudioURL, ".ogg"), v.AudioURL)

	files := f.mediaFiles(t)
	require.Len(t, files, 1)
	assert.Equal(t, ".ogg", filepath.Ext(files[0]))
	assert.Equal(t, "ogg", f.storage.clips[0].Format)
}

func TestHandleUploadOutOfRange(t *testing.T) {
	for _, idx := range []int{-1, 10, 1000} {
		t.Run(fmt.Sprint(idx), func(t *testing.T) {
			o := &stubOracle{result: true}
			f := newFixture(t, o)

			_, err := f.svc.HandleUpload(context.Background(), echocommand.UploadRequest{
				Transcript: "keep going", Index: idx, Audio: strings.NewReader("a"),
			})
			assert.ErrorIs(t, err, echocommand.ErrOutOfRange)
			assert.Empty(t, o.expected, "oracle must not be consulted")
			assert.Len(t, f.mediaFiles(t), 1, "recording is kept")
		})
	}
}

func TestHandleUploadNotConfigured(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.HandleUpload(context.Background(), echocommand.UploadRequest{
		Transcript: "keep going", Index: 9, Audio: strings.NewReader("a"),
	})
	assert.ErrorIs(t, err, echocommand.ErrNotConfigured)
	assert.Empty(t, f.mediaFiles(t))
}

func TestHandleUploadMissingAudio(t *testing.T) {
	f := newFixture(t, &stubOracle{})
	_, err := f.svc.HandleUpload(context.Background(), echocommand.UploadRequest{Transcript: "x"})
	assert.ErrorIs(t, err, echocommand.ErrInvalidRequest)
	assert.NotErrorIs(t, err, echocommand.ErrEmptyMerge)
}

func TestHandleUploadOracleFailures(t *testing.T) {
	generic := errors.New("boom")
	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNot error
	}{
		{"unavailable", fmt.Errorf("%w: 503", echocommand.ErrServiceUnavailable), echocommand.ErrServiceUnavailable, nil},
		{"generic", generic, generic, echocommand.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &stubOracle{err: tt.err})
			_, err := f.svc.HandleUpload(context.Background(), echocommand.UploadRequest{
				Transcript: "keep going", Index: 9, Audio: strings.NewReader("a"),
			})
			assert.ErrorIs(t, err, tt.wantIs)
			if tt.wantNot != nil {
				assert.NotErrorIs(t, err, tt.wantNot)
			}
			assert.Len(t, f.mediaFiles(t), 1)
		})
	}
}

func TestHandleUploadWithOrderedOracle(t *testing.T) {
	f := newFixture(t, oracle.NewOrdered())

	tests := []struct {
		transcript string
		index      int
		want       bool
	}{
		{"um keep going i guess", 9, true},
		{"Keep going!", 9, true},
		{"going keep", 9, false},
		{"I think... don't look back", 4, true},
		{"go forward", 4, false},
		{"let's keep moving", 0, true},
		{"keep moving", 0, false},
	}

	for _, tt := range tests {
		v, err := f.svc.HandleUpload(context.Background(), echocommand.UploadRequest{
			Transcript: tt.transcript, Index: tt.index, Audio: strings.NewReader("a"),
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, v.IsMatch, "%q at %d", tt.transcript, tt.index)
	}
}

func TestHandleMergeEmpty(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.HandleMerge(context.Background(), nil)
	assert.ErrorIs(t, err, echocommand.ErrInvalidRequest)
	assert.ErrorIs(t, err, echocommand.ErrEmptyMerge)
	assert.Empty(t, f.mediaFiles(t))
	assert.Empty(t, f.codec.decoded)
}

func TestHandleMergeOrderAndSkips(t *testing.T) {
	f := newFixture(t, nil)
	a := f.writeClip(t, "a.webm", "AAA")
	b := f.writeClip(t, "b.webm", "BB")

	clip, err := f.svc.HandleMerge(context.Background(), []string{
		b,
		"/media/missing.webm",
		"http://localhost:5000" + a,
		"/media/../secret.webm",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"b.webm", "a.webm"}, f.codec.decoded)
	assert.True(t, strings.HasPrefix(clip.FileName, "merged_"))
	assert.True(t, strings.HasSuffix(clip.FileName, ".mp3"))
	assert.Equal(t, "/media/"+clip.FileName, clip.URL)
	assert.Equal(t, echocommand.ClipMerged, clip.Kind)
	assert.Equal(t, 5, clip.DurationMs)
	assert.Len(t, clip.Sources, 2)

	data, err := os.ReadFile(filepath.Join(f.mediaDir, clip.FileName))
	require.NoError(t, err)
	assert.Equal(t, "BBAAA", string(data))

	assert.Equal(t, 1, f.logs.FilterMessageSnippet("File not found, skipping").Len())
	assert.Equal(t, 1, f.logs.FilterMessageSnippet("outside media root").Len())

	count, err := f.svc.ClipCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestHandleMergeSameClipTwice(t *testing.T) {
	f := newFixture(t, nil)
	a := f.writeClip(t, "a.webm", "AB")

	clip, err := f.svc.HandleMerge(context.Background(), []string{a, a})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.mediaDir, clip.FileName))
	require.NoError(t, err)
	assert.Equal(t, "ABAB", string(data))
}

func TestHandleMergeNothingProcessed(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.HandleMerge(context.Background(), []string{"/media/nope.webm", "/media/also-nope.webm"})
	assert.ErrorIs(t, err, echocommand.ErrNothingProcessed)
	assert.Empty(t, f.mediaFiles(t))
}

func TestHandleMergeDecodeFailure(t *testing.T) {
	f := newFixture(t, nil)
	good := f.writeClip(t, "good.webm", "ok")
	bad := f.writeClip(t, "bad.webm", "corrupt")

	_, err := f.svc.HandleMerge(context.Background(), []string{good, bad})
	assert.ErrorIs(t, err, echocommand.ErrMergeFailure)
	assert.ElementsMatch(t, []string{"good.webm", "bad.webm"}, f.mediaFiles(t))
}

func TestHandleMergeCustomPrefix(t *testing.T) {
	f := newFixture(t, nil, echocommand.WithMediaURLPrefix("clips"), echocommand.WithMergedFormat("wav"))
	require.NoError(t, os.WriteFile(filepath.Join(f.mediaDir, "a.webm"), []byte("A"), 0o644))

	clip, err := f.svc.HandleMerge(context.Background(), []string{"/clips/a.webm", "/media/a.webm"})
	require.NoError(t, err)
	assert.Equal(t, "/clips/"+clip.FileName, clip.URL)
	assert.True(t, strings.HasSuffix(clip.FileName, ".wav"))
	assert.Equal(t, []string{"/clips/a.webm"}, clip.Sources)
}

func TestSQLiteStorage(t *testing.T) {
	stor, err := echocommand.NewSQLiteStorage(filepath.Join(t.TempDir(), "clips.db"))
	require.NoError(t, err)
	defer stor.Close()

	created := time.Now().Truncate(time.Second)
	require.NoError(t, stor.RegisterClip(echocommand.StoredClip{
		ID: "m1", FileName: "merged_m1.mp3", URL: "/media/merged_m1.mp3",
		Kind: echocommand.ClipMerged, Format: "mp3", InstructionIndex: -1,
		Sources: []string{"/media/a.webm", "/media/b.webm"}, CreatedAt: created,
	}))

	got, err := stor.GetClip("m1")
	require.NoError(t, err)
	assert.Equal(t, echocommand.ClipMerged, got.Kind)
	assert.Equal(t, []string{"/media/a.webm", "/media/b.webm"}, got.Sources)
	assert.True(t, created.Equal(got.CreatedAt))

	n, err := stor.CountClips()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
