package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/himanishpuri/EchoCommand/pkg/echocommand"
	"github.com/himanishpuri/EchoCommand/pkg/logger"
)

// VerdictCache remembers verdicts by key.
type VerdictCache interface {
	Get(ctx context.Context, key string) (match bool, found bool, err error)
	Set(ctx context.Context, key string, match bool) error
}

// Cached puts a VerdictCache in front of another oracle. Only successful
// verdicts are stored; cache failures are logged and otherwise ignored.
type Cached struct {
	inner     echocommand.Oracle
	cache     VerdictCache
	namespace string
	log       echocommand.Logger
}

// NewCached keys every verdict under namespace, which must change whenever
// the inner oracle could answer differently. See CacheNamespace.
func NewCached(inner echocommand.Oracle, cache VerdictCache, namespace string) *Cached {
	return &Cached{inner: inner, cache: cache, namespace: namespace, log: logger.GetLogger()}
}

func (c *Cached) WithLogger(log echocommand.Logger) *Cached {
	c.log = log
	return c
}

func (c *Cached) Evaluate(ctx context.Context, expected, actual string) (bool, error) {
	key := CacheKey(c.namespace, expected, actual)

	match, found, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warnf("Verdict cache lookup failed: %v", err)
	} else if found {
		c.log.Debugf("Verdict cache hit for '%s'", expected)
		return match, nil
	}

	match, err = c.inner.Evaluate(ctx, expected, actual)
	if err != nil {
		return false, err
	}

	if err := c.cache.Set(ctx, key, match); err != nil {
		c.log.Warnf("Verdict cache store failed: %v", err)
	}
	return match, nil
}

// CacheNamespace identifies the verdicts of one provider, model and prompt.
func CacheNamespace(provider, model string) string {
	return provider + ":" + model + ":" + PromptVersion
}

// CacheKey is the hex sha256 of the namespace and the normalized pair.
func CacheKey(namespace, expected, actual string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(expected))
	h.Write([]byte{0})
	h.Write([]byte(actual))
	return hex.EncodeToString(h.Sum(nil))
}
