package headers

import "strings"

// Field is one header line. Fields sharing the same (case-insensitive) Name
// form an ordered duplicate list via next, addressable either as one
// multi-valued field (via CsvIter with followDups) or as separate singletons
// (by index into HttpHeader.FieldsNamed).
type Field struct {
	Name  string
	Value string
	next  *Field
}

// HttpHeader is either a request or a response. Header storage is a
// plain slice plus a name index: stable order, O(1) presence checks,
// O(k) lookup by name.
type HttpHeader struct {
	IsRequest bool

	Method    Method
	MethodRaw string // verbatim method token, used when Method == MethodUnknown
	URL       *Url
	VersionMajor int
	VersionMinor int

	StatusCode int
	Reason     string

	fields   []*Field
	byName   map[string][]*Field
	presence Presence
}

// NewRequestHeader returns an empty request HttpHeader.
func NewRequestHeader() *HttpHeader {
	return &HttpHeader{IsRequest: true, URL: NewURL(), byName: make(map[string][]*Field)}
}

// NewResponseHeader returns an empty response HttpHeader.
func NewResponseHeader() *HttpHeader {
	return &HttpHeader{IsRequest: false, byName: make(map[string][]*Field)}
}

func key(name string) string {
	return strings.ToLower(name)
}

// Presence returns the accumulated presence mask for fields seen so far.
func (h *HttpHeader) Presence() Presence {
	return h.presence
}

// Add appends a new field, preserving any existing field(s) of the same
// name as duplicates.
func (h *HttpHeader) Add(name, value string) {
	f := &Field{Name: name, Value: value}
	h.fields = append(h.fields, f)
	k := key(name)
	if h.byName == nil {
		h.byName = make(map[string][]*Field)
	}
	if existing := h.byName[k]; len(existing) > 0 {
		existing[len(existing)-1].next = f
	}
	h.byName[k] = append(h.byName[k], f)
	if bit, ok := presenceByName[k]; ok {
		h.presence |= bit
	}
}

// Set replaces all fields named name with a single field carrying value.
// An empty value still leaves the field present, so it survives a print
// round trip.
func (h *HttpHeader) Set(name, value string) {
	h.Delete(name)
	h.Add(name, value)
}

// Delete removes every field named name.
func (h *HttpHeader) Delete(name string) {
	k := key(name)
	if _, ok := h.byName[k]; !ok {
		return
	}
	delete(h.byName, k)
	kept := h.fields[:0:0]
	for _, f := range h.fields {
		if key(f.Name) != k {
			kept = append(kept, f)
		}
	}
	h.fields = kept
	if bit, ok := presenceByName[k]; ok {
		h.presence &^= bit
	}
}

// Get returns the value of the first field named name, and whether any
// field with that name exists.
func (h *HttpHeader) Get(name string) (string, bool) {
	fs, ok := h.byName[key(name)]
	if !ok || len(fs) == 0 {
		return "", false
	}
	return fs[0].Value, true
}

// Has reports whether any field named name is present.
func (h *HttpHeader) Has(name string) bool {
	fs, ok := h.byName[key(name)]
	return ok && len(fs) > 0
}

// FieldsNamed returns every field with the given name, in the order they
// were added — the "separate singletons" addressing mode.
func (h *HttpHeader) FieldsNamed(name string) []*Field {
	return h.byName[key(name)]
}

// Fields returns every field in the header, in wire order.
func (h *HttpHeader) Fields() []*Field {
	return h.fields
}

// Clone returns a deep copy of h, safe to mutate independently. Callers that
// need a frozen snapshot (e.g. CachedObject's request/response headers, per
// frozen) should Clone rather than alias.
func (h *HttpHeader) Clone() *HttpHeader {
	n := &HttpHeader{
		IsRequest:    h.IsRequest,
		Method:       h.Method,
		MethodRaw:    h.MethodRaw,
		VersionMajor: h.VersionMajor,
		VersionMinor: h.VersionMinor,
		StatusCode:   h.StatusCode,
		Reason:       h.Reason,
		byName:       make(map[string][]*Field),
	}
	if h.URL != nil {
		n.URL = h.URL.Copy()
	}
	for _, f := range h.fields {
		n.Add(f.Name, f.Value)
	}
	return n
}
