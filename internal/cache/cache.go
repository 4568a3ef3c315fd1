// Package cache holds synthesized audio for fixed spoken phrases.
package cache

import (
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/felixgeelhaar/parlance/internal/speech"
)

// ResponseCache maps normalized phrases to synthesized audio. Entries never
// expire and are never evicted; Clear empties the cache in one step.
type ResponseCache struct {
	items *gocache.Cache
}

// New creates an empty cache.
func New() *ResponseCache {
	return &ResponseCache{
		items: gocache.New(gocache.NoExpiration, 0),
	}
}

// Key normalizes a phrase: trimmed, lower-cased, with internal whitespace
// collapsed to single spaces.
func Key(phrase string) string {
	return strings.ToLower(strings.Join(strings.Fields(phrase), " "))
}

// Get returns the artifact stored for phrase.
func (c *ResponseCache) Get(phrase string) (speech.Audio, bool) {
	v, found := c.items.Get(Key(phrase))
	if !found {
		return speech.Audio{}, false
	}
	audio, ok := v.(speech.Audio)
	return audio, ok
}

// Put stores audio for phrase. An existing entry is left untouched.
func (c *ResponseCache) Put(phrase string, audio speech.Audio) {
	key := Key(phrase)
	if key == "" || audio.Empty() {
		return
	}
	// Add refuses existing keys, which makes repeated puts no-ops.
	_ = c.items.Add(key, audio, gocache.NoExpiration)
}

// Contains reports whether phrase is cached.
func (c *ResponseCache) Contains(phrase string) bool {
	_, found := c.items.Get(Key(phrase))
	return found
}

// Clear removes every entry.
func (c *ResponseCache) Clear() {
	c.items.Flush()
}

// Len returns the number of cached phrases.
func (c *ResponseCache) Len() int {
	return c.items.ItemCount()
}
