package policy

// Package policy defines the eviction orderings used to pick which cached files go first.

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Policy selects the order in which files become deletion candidates.
type Policy int

const (
	OldestFirst Policy = iota // least recently modified files go first (lru)
	NewestFirst               // most recently modified files go first (mru)
	Random                    // files go in an order drawn at scan time
)

func (p Policy) String() string {
	switch p {
	case OldestFirst:
		return "lru"
	case NewestFirst:
		return "mru"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Parse maps a policy name to a Policy.
func Parse(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lru", "oldest":
		return OldestFirst, nil
	case "mru", "newest":
		return NewestFirst, nil
	case "random":
		return Random, nil
	}
	return 0, fmt.Errorf("unknown eviction policy %q", name)
}

// Key is the value a file is ordered by. Keys are only comparable through
// the Ordering that produced them.
type Key struct {
	mtime int64
	draw  float64
}

// Ordering is a resolved policy: a key function plus the comparator over
// its keys. Files that compare lower are deleted first.
type Ordering struct {
	Policy Policy
	Key    func(modTime time.Time) Key
	Less   func(a, b Key) bool
}

// Ordering resolves p once so the scan loop never switches on the policy.
func (p Policy) Ordering() Ordering {
	switch p {
	case NewestFirst:
		return Ordering{Policy: p, Key: mtimeKey, Less: func(a, b Key) bool { return a.mtime > b.mtime }}
	case Random:
		return Ordering{Policy: p, Key: randomKey, Less: func(a, b Key) bool { return a.draw < b.draw }}
	default:
		return Ordering{Policy: OldestFirst, Key: mtimeKey, Less: func(a, b Key) bool { return a.mtime < b.mtime }}
	}
}

func mtimeKey(modTime time.Time) Key {
	return Key{mtime: modTime.UnixNano()}
}

func randomKey(time.Time) Key {
	return Key{draw: rand.Float64()}
}
