// Package ipallow implements the per-address allow/deny of HTTP
// methods: a longest-prefix IP map from source and
// destination address ranges to a Record describing which methods are
// permitted, consulted before accepting or forwarding a request.
package ipallow

import (
	"strings"

	"github.com/corehttp/txcore/internal/headers"
)

// AllMethodMask is the sentinel mask meaning "every method is allowed",
// mirroring the source's ALL_METHOD_MASK = ~0 (all bits set, not just the
// ones currently assigned to a well-known method).
const AllMethodMask uint32 = ^uint32(0)

func methodBit(m headers.Method) uint32 {
	if m == headers.MethodUnknown {
		return 0
	}
	return 1 << uint32(m-1)
}

// Record is one parsed allow/deny rule. A mask of 0 with an empty
// Nonstandard list means deny-all.
type Record struct {
	MethodMask      uint32
	Nonstandard     []string
	DenyNonstandard bool
	SourceLine      uint32
}

// IsDenyAll reports whether r denies every method, standard and
// nonstandard alike — the fast-path condition IpAllow.Match consults for
// the accept-time shortcut.
func (r *Record) IsDenyAll() bool {
	return r == nil || (r.MethodMask == 0 && len(r.Nonstandard) == 0)
}

// IsAllowAll reports whether r allows every well-known method.
func (r *Record) IsAllowAll() bool {
	return r != nil && r.MethodMask == AllMethodMask
}

// IsMethodAllowed reports whether m's bit is set in the method mask.
func (r *Record) IsMethodAllowed(m headers.Method) bool {
	return r != nil && r.MethodMask&methodBit(m) != 0
}

// IsNonstandardAllowed reports whether a method name outside the
// well-known set is permitted. On an allow rule the allow-all mask
// short-circuits to true regardless of the list; otherwise presence in
// Nonstandard is inverted by DenyNonstandard.
func (r *Record) IsNonstandardAllowed(name string) bool {
	if r == nil {
		return false
	}
	if r.MethodMask == AllMethodMask && !r.DenyNonstandard {
		return true
	}
	found := false
	for _, n := range r.Nonstandard {
		if strings.EqualFold(n, name) {
			found = true
			break
		}
	}
	if r.DenyNonstandard {
		return !found
	}
	return found
}
