package bootstrap

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/EchoCommand/internal/config"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand/oracle"
	"github.com/himanishpuri/EchoCommand/pkg/logger"
)

func testConfig(t *testing.T, provider, key string) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Media.Dir = filepath.Join(dir, "media")
	cfg.Database.Path = filepath.Join(dir, "clips.db")
	cfg.Oracle.Provider = provider
	cfg.Oracle.APIKey = key
	return cfg
}

func TestNewOracle(t *testing.T) {
	log := logger.NewNop()
	ctx := context.Background()

	o, err := NewOracle(ctx, testConfig(t, "local", ""), log)
	require.NoError(t, err)
	assert.IsType(t, &oracle.Ordered{}, o)

	o, err = NewOracle(ctx, testConfig(t, "openai", ""), log)
	require.NoError(t, err)
	assert.Nil(t, o)

	o, err = NewOracle(ctx, testConfig(t, "openai", "sk-test"), log)
	require.NoError(t, err)
	assert.IsType(t, &oracle.OpenAI{}, o)

	o, err = NewOracle(ctx, testConfig(t, "gemini", ""), log)
	require.NoError(t, err)
	assert.Nil(t, o)

	_, err = NewOracle(ctx, testConfig(t, "psychic", ""), log)
	assert.Error(t, err)
}

func TestNewServiceMatchingDisabledWithoutKey(t *testing.T) {
	svc, err := NewService(context.Background(), testConfig(t, "openai", ""), logger.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	assert.False(t, svc.MatchingEnabled())
	assert.Equal(t, "openai", svc.Provider)
}

func TestNewServiceCustomInstructions(t *testing.T) {
	cfg := testConfig(t, "local", "")
	cfg.Instructions = []string{"Stand up", "Sit down"}

	svc, err := NewService(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer svc.Close()

	assert.True(t, svc.MatchingEnabled())
	assert.Equal(t, []string{"Stand up", "Sit down"}, svc.Instructions())

	v, err := svc.HandleUpload(context.Background(), uploadOf("um stand up please", 0))
	require.NoError(t, err)
	assert.True(t, v.IsMatch)
}

func TestNewServiceUnreachableCacheIsNotFatal(t *testing.T) {
	cfg := testConfig(t, "local", "")
	cfg.Cache.RedisAddr = "127.0.0.1:1"

	svc, err := NewService(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer svc.Close()
	assert.True(t, svc.MatchingEnabled())
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "warn"
	cfg.Log.Format = "json"
	require.NotNil(t, NewLogger(cfg))
}

func uploadOf(transcript string, index int) echocommand.UploadRequest {
	return echocommand.UploadRequest{
		Transcript: transcript,
		Index:      index,
		Audio:      strings.NewReader("not really webm"),
	}
}

func TestCacheNamespaceFollowsProviderAndModel(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t, "openai", "sk-test")
	o, err := NewOracle(ctx, cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, oracle.CacheNamespace("openai", oracle.DefaultOpenAIModel), cacheNamespace("openai", o))

	cfg.Oracle.Model = "gpt-4o"
	o, err = NewOracle(ctx, cfg, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, oracle.CacheNamespace("openai", "gpt-4o"), cacheNamespace("openai", o))

	assert.Equal(t, oracle.CacheNamespace("local", ""), cacheNamespace("local", oracle.NewOrdered()))
	assert.NotEqual(t, cacheNamespace("openai", o), cacheNamespace("local", oracle.NewOrdered()))
}
