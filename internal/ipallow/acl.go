package ipallow

import "github.com/corehttp/txcore/internal/headers"

// Acl is the result of a Match: a Record bound to the configuration
// generation it was read from. Holding an Acl keeps that generation's
// Config reachable even if a reload has since swapped in a newer one.
type Acl struct {
	record     *Record
	generation uint64
}

// Valid reports whether the lookup found a matching record at all. An
// invalid Acl denies every method.
func (a Acl) Valid() bool {
	return a.record != nil
}

// Generation returns the configuration generation this Acl was resolved
// against.
func (a Acl) Generation() uint64 {
	return a.generation
}

// IsDenyAll reports whether the bound record denies every method.
func (a Acl) IsDenyAll() bool {
	return a.record.IsDenyAll()
}

// IsAllowAll reports whether the bound record allows every well-known
// method.
func (a Acl) IsAllowAll() bool {
	return a.record.IsAllowAll()
}

// IsMethodAllowed reports whether m is permitted.
func (a Acl) IsMethodAllowed(m headers.Method) bool {
	return a.record.IsMethodAllowed(m)
}

// IsNonstandardAllowed reports whether a method name outside the
// well-known set is permitted.
func (a Acl) IsNonstandardAllowed(name string) bool {
	return a.record.IsNonstandardAllowed(name)
}
