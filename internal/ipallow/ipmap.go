package ipallow

import (
	"bytes"
	"net"
)

// rangeEntry is one inserted [low, high] address range mapping to a record.
// Addresses are stored as normalized 16-byte net.IP (v4-in-v6) so v4 and v6
// ranges compare uniformly.
type rangeEntry struct {
	low, high net.IP
	record    *Record
	order     int
}

func normalize(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4.To16()
	}
	return ip.To16()
}

func cmp(a, b net.IP) int {
	return bytes.Compare(a, b)
}

// width returns high-low as a big-endian number of the same length as the
// addresses, so comparing two widths orders ranges by how many addresses
// they cover.
func width(e rangeEntry) []byte {
	w := make([]byte, len(e.low))
	borrow := 0
	for i := len(e.low) - 1; i >= 0; i-- {
		d := int(e.high[i]) - int(e.low[i]) - borrow
		borrow = 0
		if d < 0 {
			d += 256
			borrow = 1
		}
		w[i] = byte(d)
	}
	return w
}

// IpMap is a longest-prefix range-to-Record map over IPv4 and IPv6
// addresses, used for both the source_map and destination_map of an
// IpAllow instance. Overlapping ranges are resolved by
// preferring the narrowest inserted range; ties fall back to the most
// recently inserted range, so a later reload's ordering is stable.
type IpMap struct {
	entries []rangeEntry
}

// NewIpMap returns an empty map.
func NewIpMap() *IpMap {
	return &IpMap{}
}

// Insert adds a [low, high] inclusive range mapping to rec. Single
// addresses are inserted with low == high.
func (m *IpMap) Insert(low, high net.IP, rec *Record) {
	m.entries = append(m.entries, rangeEntry{
		low:    normalize(low),
		high:   normalize(high),
		record: rec,
		order:  len(m.entries),
	})
}

// Lookup returns the Record for the narrowest range containing addr, or nil
// if no range matches.
func (m *IpMap) Lookup(addr net.IP) *Record {
	a := normalize(addr)
	if a == nil {
		return nil
	}
	var best *rangeEntry
	for i := range m.entries {
		e := &m.entries[i]
		if cmp(a, e.low) < 0 || cmp(a, e.high) > 0 {
			continue
		}
		if best == nil {
			best = e
			continue
		}
		c := cmp(width(*e), width(*best))
		if c < 0 || (c == 0 && e.order > best.order) {
			best = e
		}
	}
	if best == nil {
		return nil
	}
	return best.record
}

// Len reports the number of ranges inserted.
func (m *IpMap) Len() int {
	return len(m.entries)
}
