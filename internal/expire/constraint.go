package expire

import (
	"fmt"

	"fs-expire/internal/units"
)

// Mode is the kind of space target a run works towards.
type Mode int

const (
	Delete     Mode = iota // delete a number of bytes
	EnsureFree             // leave a number of bytes free on the filesystem
	Keep                   // keep the scanned trees under a number of bytes
)

func (m Mode) String() string {
	switch m {
	case Delete:
		return "delete"
	case EnsureFree:
		return "ensure-free"
	case Keep:
		return "keep"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Constraint is a space target: exactly one mode and its byte budget.
type Constraint struct {
	Mode  Mode
	Bytes int64
}

func DeleteBytes(n int64) Constraint     { return Constraint{Mode: Delete, Bytes: n} }
func EnsureFreeBytes(n int64) Constraint { return Constraint{Mode: EnsureFree, Bytes: n} }
func KeepAtMostBytes(n int64) Constraint { return Constraint{Mode: Keep, Bytes: n} }

func (c Constraint) String() string {
	return c.Mode.String() + " " + units.Format(c.Bytes)
}

// Resolve turns an EnsureFree target into the number of bytes to delete,
// given the filesystem's current free space. The second result is false
// when the constraint is already met and no scan is needed.
func (c Constraint) Resolve(free int64) (Constraint, bool) {
	switch c.Mode {
	case EnsureFree:
		if c.Bytes <= free {
			return c, false
		}
		return DeleteBytes(c.Bytes - free), true
	case Delete:
		return c, c.Bytes > 0
	default:
		return c, true
	}
}
