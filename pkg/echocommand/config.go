package echocommand

import "github.com/himanishpuri/EchoCommand/pkg/echocommand/audio"

type Config struct {
	MediaDir       string
	MediaURLPrefix string
	UploadExt      string
	MergedFormat   string
	DBPath         string
	TempDir        string
	Audio          audio.ConvertWAVConfig
	Instructions   []string
	Oracle         Oracle
	Codec          Codec
	Prober         Prober
	Logger         Logger
	Storage        Storage
}

type Option func(*Config)

func WithMediaDir(dir string) Option {
	return func(c *Config) {
		c.MediaDir = dir
	}
}

// WithMediaURLPrefix sets the public path prefix under which the media dir is
// served, e.g. "/media/".
func WithMediaURLPrefix(prefix string) Option {
	return func(c *Config) {
		c.MediaURLPrefix = prefix
	}
}

func WithUploadExt(ext string) Option {
	return func(c *Config) {
		c.UploadExt = ext
	}
}

func WithMergedFormat(format string) Option {
	return func(c *Config) {
		c.MergedFormat = format
	}
}

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithAudioFormat(cfg audio.ConvertWAVConfig) Option {
	return func(c *Config) {
		c.Audio = cfg
	}
}

// WithInstructions replaces the built-in instruction list. An empty list keeps the default.
func WithInstructions(items []string) Option {
	return func(c *Config) {
		if len(items) > 0 {
			c.Instructions = items
		}
	}
}

// WithOracle enables matching. Without an oracle, uploads fail with ErrNotConfigured.
func WithOracle(o Oracle) Option {
	return func(c *Config) {
		c.Oracle = o
	}
}

func WithCodec(codec Codec) Option {
	return func(c *Config) {
		c.Codec = codec
	}
}

func WithProber(p Prober) Option {
	return func(c *Config) {
		c.Prober = p
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		MediaDir:       "media",
		MediaURLPrefix: "/media/",
		UploadExt:      ".webm",
		MergedFormat:   "mp3",
		DBPath:         "echocommand.sqlite3",
		TempDir:        "",
		Audio:          audio.ConvertWAVConfig{SampleRate: 48000, Channels: 1},
		Instructions:   DefaultInstructions,
	}
}
