package headers

import (
	"reflect"
	"testing"
)

func TestCsvIterBasic(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "a,b,c,d", []string{"a", "b", "c", "d"}},
		{"quoted", `"I", "hate", "strings"`, []string{"I", "hate", "strings"}},
		{"mixed-ws", "This, is a, test", []string{"This", "is a", "test"}},
		{"quoted-comma", `"This is," a test`, []string{"This is,", "a test"}},
		{"empty-between", "a,,b", []string{"a", "", "b"}},
		{"trailing-comma", "a,", []string{"a"}},
		{"unterminated-quote", `"abc`, []string{"abc"}},
		{"escaped-quote", `"a\"b"`, []string{`a\"b`}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := NewRequestHeader()
			h.Add("Cache-Control", c.in)
			got := Values(h, "Cache-Control", ',', true)
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("Values(%q) = %#v, want %#v", c.in, got, c.want)
			}
		})
	}
}

func TestCsvIterEmptyField(t *testing.T) {
	h := NewRequestHeader()
	h.Add("Vary", "")
	got := Values(h, "Vary", ',', true)
	if got != nil {
		t.Fatalf("expected no sub-values, got %#v", got)
	}
	if !h.Has("Vary") {
		t.Fatal("Vary field should remain present despite empty value")
	}
}

func TestCsvIterFollowsDuplicates(t *testing.T) {
	h := NewRequestHeader()
	h.Add("Vary", "a,b")
	h.Add("Vary", "c")

	gotFollow := Values(h, "Vary", ',', true)
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(gotFollow, want) {
		t.Fatalf("follow dups = %#v, want %#v", gotFollow, want)
	}

	gotNoFollow := Values(h, "Vary", ',', false)
	if want := []string{"a", "b"}; !reflect.DeepEqual(gotNoFollow, want) {
		t.Fatalf("no-follow dups = %#v, want %#v", gotNoFollow, want)
	}
}

func TestCsvIterSemicolonSeparator(t *testing.T) {
	h := NewRequestHeader()
	h.Add("Cookie", "a=1; b=2;c=3")
	got := Values(h, "Cookie", ';', true)
	want := []string{"a=1", "b=2", "c=3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Cookie values = %#v, want %#v", got, want)
	}
}

func TestCsvIterRoundTrip(t *testing.T) {
	// Concatenating the iterator's outputs with the declared separator
	// reconstructs a string equivalent modulo whitespace and quoting.
	h := NewRequestHeader()
	h.Add("Cache-Control", "max-age=60, no-transform, public")
	vals := Values(h, "Cache-Control", ',', true)
	joined := ""
	for i, v := range vals {
		if i > 0 {
			joined += ","
		}
		joined += v
	}
	if joined != "max-age=60,no-transform,public" {
		t.Fatalf("round trip mismatch: %q", joined)
	}
}

func TestCountValues(t *testing.T) {
	h := NewRequestHeader()
	h.Add("Cache-Control", "a,b,c")
	if n := CountValues(h, "Cache-Control", ',', true); n != 3 {
		t.Fatalf("CountValues = %d, want 3", n)
	}
}
