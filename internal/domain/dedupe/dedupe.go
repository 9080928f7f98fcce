// Package dedupe computes submission identity keys and tracks which keys are
// already stored.
package dedupe

import (
	"context"
	"regexp"
	"strings"
	"sync"
)

const keySeparator = "\x1f"

var (
	subjectEcho = regexp.MustCompile(`(?i)^\s*subject\s*:[^\n]*\n`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Key is the identity of one submission event: game, email, canonical
// timestamp and normalized answer text.
type Key struct {
	Game      string
	Email     string
	Timestamp string
	Answer    string
}

// NewKey normalizes the four identity fields. The timestamp must already be
// in canonical form.
func NewKey(game, email, timestamp, answer string) Key {
	return Key{
		Game:      strings.ToLower(strings.TrimSpace(game)),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Timestamp: strings.TrimSpace(timestamp),
		Answer:    NormalizeAnswer(answer),
	}
}

// NormalizeAnswer strips a leading "Subject:" echo line, collapses
// whitespace and lowercases.
func NormalizeAnswer(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = subjectEcho.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// String joins the fields with a separator that cannot appear in cell text.
func (k Key) String() string {
	return strings.Join([]string{k.Game, k.Email, k.Timestamp, k.Answer}, keySeparator)
}

// Deduper records seen submission keys to ensure at-most-once storage.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key Key) bool

	// Unrecord forgets a key whose row could not be stored, so a later run
	// can ingest it again.
	Unrecord(ctx context.Context, key Key)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map guarded by a mutex.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	hint int
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{hint: defaultSizeHint}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.hint)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key Key) bool {
	id := key.String()
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.seen[id]; exists {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key Key) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key.String())
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
