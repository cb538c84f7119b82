package ipallow

import (
	"fmt"
	"net"
	"strings"

	"github.com/corehttp/txcore/internal/headers"
	yaml "gopkg.in/yaml.v2"
)

type yamlEntry struct {
	Apply   string      `yaml:"apply"`
	IpAddrs interface{} `yaml:"ip_addrs"`
	Action  string      `yaml:"action"`
	Methods interface{} `yaml:"methods"`
}

// parseYAML parses the `ip_allow:` document format: a root sequence or
// singleton map of entries, each with apply/ip_addrs/action/methods.
func parseYAML(data []byte) (sources, dests *IpMap, err error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	raw, ok := doc["ip_allow"]
	if !ok {
		return nil, nil, fmt.Errorf("ipallow: yaml: missing ip_allow root tag")
	}

	var rawEntries []interface{}
	switch v := raw.(type) {
	case []interface{}:
		rawEntries = v
	case map[interface{}]interface{}:
		rawEntries = []interface{}{v}
	default:
		return nil, nil, fmt.Errorf("ipallow: yaml: ip_allow must be a sequence or map")
	}

	sources, dests = NewIpMap(), NewIpMap()
	for i, re := range rawEntries {
		entry, err := decodeYAMLEntry(re)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", i, err)
		}
		var m *IpMap
		switch strings.ToLower(strings.TrimSpace(entry.Apply)) {
		case "in":
			m = sources
		case "out":
			m = dests
		default:
			return nil, nil, fmt.Errorf("entry %d: apply must be \"in\" or \"out\", got %q", i, entry.Apply)
		}

		rec, err := buildYAMLRecord(entry, uint32(i))
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", i, err)
		}

		ranges, err := parseIPAddrs(entry.IpAddrs)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if len(ranges) == 0 {
			return nil, nil, fmt.Errorf("entry %d: no valid addresses", i)
		}
		for _, r := range ranges {
			m.Insert(r[0], r[1], rec)
		}
	}
	if sources.Len() == 0 && dests.Len() == 0 {
		return nil, nil, fmt.Errorf("ipallow: yaml: no entries found")
	}
	return sources, dests, nil
}

func decodeYAMLEntry(raw interface{}) (yamlEntry, error) {
	// re-marshal through yaml to reuse the struct tags against a value
	// decoded generically by the outer document parse.
	b, err := yaml.Marshal(raw)
	if err != nil {
		return yamlEntry{}, err
	}
	var entry yamlEntry
	if err := yaml.Unmarshal(b, &entry); err != nil {
		return yamlEntry{}, err
	}
	return entry, nil
}

func parseIPAddrs(v interface{}) ([][2]net.IP, error) {
	var tokens []string
	switch t := v.(type) {
	case string:
		tokens = []string{t}
	case []interface{}:
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("ip_addrs entries must be strings")
			}
			tokens = append(tokens, s)
		}
	case nil:
		return nil, fmt.Errorf("ip_addrs is required")
	default:
		return nil, fmt.Errorf("ip_addrs must be a string or list of strings")
	}

	var out [][2]net.IP
	for _, tok := range tokens {
		low, high, err := parseRange(tok)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid range: %w", tok, err)
		}
		out = append(out, [2]net.IP{low, high})
	}
	return out, nil
}

// buildYAMLRecord mirrors YAMLLoadEntry/YAMLLoadMethod: an absent methods
// key means allow-all; an "all" token anywhere short-circuits to
// allow-all and drops any accumulated nonstandard names; a deny action
// complements the well-known mask and flags DenyNonstandard, leaving the
// nonstandard list as the literal names the rule names.
func buildYAMLRecord(entry yamlEntry, line uint32) (*Record, error) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	if action != "allow" && action != "deny" {
		return nil, fmt.Errorf("action must be \"allow\" or \"deny\", got %q", entry.Action)
	}

	var mask uint32
	var nonstandard []string

	if entry.Methods == nil {
		mask = AllMethodMask
	} else {
		tokens, err := methodTokens(entry.Methods)
		if err != nil {
			return nil, err
		}
		for _, tok := range tokens {
			if strings.EqualFold(tok, "all") {
				mask = AllMethodMask
				nonstandard = nil
				break
			}
			if m := headers.ParseMethod(tok); m != headers.MethodUnknown {
				mask |= methodBit(m)
			} else {
				nonstandard = append(nonstandard, tok)
			}
		}
	}
	if mask == AllMethodMask {
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
		SourceLine:      line,
	}, nil
}

func methodTokens(v interface{}) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []interface{}:
		var out []string
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("methods entries must be strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("methods must be a string or list of strings")
	}
}
