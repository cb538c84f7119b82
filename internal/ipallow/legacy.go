package ipallow

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strings"

	"github.com/corehttp/txcore/internal/headers"
)

// parseLegacy parses the flat one-rule-per-line format: `src_ip=<range>
// action=<allow|deny> method=<all|CSV>` or `dest_ip=…`.
func parseLegacy(data []byte) (sources, dests *IpMap, err error) {
	sources, dests = NewIpMap(), NewIpMap()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := uint32(0)
	matched := false
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields, err := splitAssignments(line)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		var addrSpec string
		isDst := false
		if v, ok := fields["src_ip"]; ok {
			addrSpec = v
		} else if v, ok := fields["dest_ip"]; ok {
			addrSpec = v
			isDst = true
		} else {
			return nil, nil, fmt.Errorf("line %d: missing src_ip/dest_ip", lineNo)
		}
		low, high, err := parseRange(addrSpec)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		action, ok := fields["action"]
		if !ok {
			return nil, nil, fmt.Errorf("line %d: missing action", lineNo)
		}
		rec, err := buildRecord(action, fields["method"], lineNo)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if isDst {
			dests.Insert(low, high, rec)
		} else {
			sources.Insert(low, high, rec)
		}
		matched = true
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if !matched {
		return nil, nil, fmt.Errorf("no rules parsed")
	}
	return sources, dests, nil
}

func splitAssignments(line string) (map[string]string, error) {
	out := map[string]string{}
	for _, tok := range strings.Fields(line) {
		kv := strings.SplitN(tok, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed token %q", tok)
		}
		out[strings.ToLower(kv[0])] = kv[1]
	}
	return out, nil
}

func parseRange(spec string) (low, high net.IP, err error) {
	if strings.Contains(spec, "/") {
		_, ipnet, err := net.ParseCIDR(spec)
		if err != nil {
			return nil, nil, err
		}
		low = ipnet.IP
		high = make(net.IP, len(ipnet.IP))
		for i := range ipnet.IP {
			high[i] = ipnet.IP[i] | ^ipnet.Mask[i]
		}
		return low, high, nil
	}
	if parts := strings.SplitN(spec, "-", 2); len(parts) == 2 {
		low = net.ParseIP(strings.TrimSpace(parts[0]))
		high = net.ParseIP(strings.TrimSpace(parts[1]))
		if low == nil || high == nil {
			return nil, nil, fmt.Errorf("bad range %q", spec)
		}
		return low, high, nil
	}
	ip := net.ParseIP(spec)
	if ip == nil {
		return nil, nil, fmt.Errorf("bad address %q", spec)
	}
	return ip, ip, nil
}

// buildRecord translates an action/method pair into a Record,
// applying the default-to-all expansion and deny-complement logic: an absent or "all" method list becomes the allow-all mask with
// an empty nonstandard list; a deny action complements the well-known
// mask and sets DenyNonstandard, leaving the nonstandard list as the
// literal set of names the rule names.
func buildRecord(action, methodSpec string, lineNo uint32) (*Record, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action != "allow" && action != "deny" {
		return nil, fmt.Errorf("bad action %q", action)
	}

	var mask uint32
	var nonstandard []string
	allFound := methodSpec == ""

	if methodSpec != "" {
		for _, tok := range strings.Split(methodSpec, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			if strings.EqualFold(tok, "all") {
				allFound = true
				continue
			}
			if m := headers.ParseMethod(tok); m != headers.MethodUnknown {
				mask |= methodBit(m)
			} else {
				nonstandard = append(nonstandard, tok)
			}
		}
	}
	if allFound {
		mask = AllMethodMask
		nonstandard = nil
	}

	denyNonstandard := false
	if action == "deny" {
		mask = ^mask
		denyNonstandard = true
	}

	return &Record{
		MethodMask:      mask,
		Nonstandard:     nonstandard,
		DenyNonstandard: denyNonstandard,
		SourceLine:      lineNo,
	}, nil
}
