package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Operation names a phase of the reconciliation pipeline, or a partition
// that phases apply to
type Operation string

const (
	OpCopy     Operation = "copy"
	OpSync     Operation = "synchronize"
	OpTitle    Operation = "title"
	OpSort     Operation = "sort"
	OpRenumber Operation = "renumber"
	OpPlaylist Operation = "playlist"
	OpSave     Operation = "save"
)

// DefaultOperations enables every phase on every partition
var DefaultOperations = []Operation{
	OpCopy, OpSync, OpTitle, OpSort, OpRenumber, OpPlaylist, OpSave,
	Operation(RoleBody), Operation(RoleMemoryStick), Operation(RoleSD),
}

// IsValid checks if the operation is a known phase or partition name
func (o Operation) IsValid() bool {
	switch o {
	case OpCopy, OpSync, OpTitle, OpSort, OpRenumber, OpPlaylist, OpSave:
		return true
	}
	return Role(o).IsValid()
}

// OpSet is the set of enabled operations for a run
type OpSet map[Operation]bool

// NewOpSet builds a set from operations
func NewOpSet(ops ...Operation) OpSet {
	s := make(OpSet, len(ops))
	for _, op := range ops {
		s[op] = true
	}
	return s
}

// ParseOpSet builds a set from names, rejecting unknown ones
func ParseOpSet(names []string) (OpSet, error) {
	s := make(OpSet, len(names))
	for _, n := range names {
		op := Operation(strings.ToLower(strings.TrimSpace(n)))
		if op == "ms" || op == "memory-stick" {
			op = Operation(RoleMemoryStick)
		}
		if !op.IsValid() {
			return nil, fmt.Errorf("%w: unknown operation: %s", ErrConfigInvalid, n)
		}
		s[op] = true
	}
	return s, nil
}

// Has reports whether op is enabled
func (s OpSet) Has(op Operation) bool {
	return s[op]
}

// Without returns a copy of the set with ops removed
func (s OpSet) Without(ops ...Operation) OpSet {
	out := make(OpSet, len(s))
	for op, on := range s {
		out[op] = on
	}
	for _, op := range ops {
		delete(out, op)
	}
	return out
}

// For returns the phases that apply to a partition. A partition that is
// not in the set is only renumbered in memory, so the identifier range
// of the next partition still follows it.
func (s OpSet) For(role Role) OpSet {
	if !s.Has(Operation(role)) {
		return NewOpSet(OpRenumber)
	}
	return s
}

// String lists the enabled operations in sorted order
func (s OpSet) String() string {
	names := make([]string, 0, len(s))
	for op, on := range s {
		if on {
			names = append(names, string(op))
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
