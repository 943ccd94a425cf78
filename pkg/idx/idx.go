// Package idx provides the identifiers used for API key records.
//
// Identifiers are ULIDs: 26 Crockford base32 characters that sort by creation
// time. The key's lookup prefix is a separate value (see keyx), so an ID
// never has to appear in a presented key.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

// Zero is the empty ID. Only used as a placeholder.
const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

// Source produces new IDs. Services hold one so tests can pin identifiers.
type Source interface {
	New() ID
}

// SourceFunc adapts a function to Source.
type SourceFunc func() ID

func (f SourceFunc) New() ID { return f() }

var (
	globalOnce sync.Once
	global     *Monotonic
)

// Monotonic hands out ULIDs that stay strictly increasing within the same
// millisecond. It is safe for concurrent use.
type Monotonic struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewMonotonic returns a generator reading the wall clock through now. A nil
// now uses time.Now.
func NewMonotonic(now func() time.Time) *Monotonic {
	if now == nil {
		now = time.Now
	}
	return &Monotonic{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     now,
	}
}

func (g *Monotonic) New() ID {
	return g.NewAt(g.now())
}

func (g *Monotonic) NewAt(t time.Time) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ID(ulid.MustNew(ulid.Timestamp(t.UTC()), g.entropy).String())
}

// Default returns the process wide generator.
func Default() *Monotonic {
	globalOnce.Do(func() { global = NewMonotonic(nil) })
	return global
}

// New returns a new ID stamped with the current time.
func New() ID {
	return Default().New()
}

// NewAt returns an ID stamped with t.
func NewAt(t time.Time) ID {
	return Default().NewAt(t)
}

// Parse validates s as a ULID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

// MustParse parses or panics. Useful for fixed IDs in tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) IsZero() bool   { return id == Zero }
func (id ID) String() string { return string(id) }

// Time extracts the embedded timestamp. Zero or invalid IDs yield the zero
// time.
func (id ID) Time() time.Time {
	if id.IsZero() {
		return time.Time{}
	}
	u, err := ulid.ParseStrict(id.String())
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

// Compare orders a and b lexically, which for ULIDs is creation order.
func Compare(a, b ID) int {
	return strings.Compare(a.String(), b.String())
}
