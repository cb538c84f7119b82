package log

import "testing"

func TestParseLevel(t *testing.T) {
	cases := []struct {
		name string
		want Level
	}{
		{"DEBUG", LevelDebug},
		{"INFO", LevelInfo},
		{"WARN", LevelWarn},
		{"ERROR", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, c := range cases {
		if got := ParseLevel(c.name); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

type countingLogger struct {
	lines [][]interface{}
}

func (c *countingLogger) Log(kvs ...interface{}) error {
	c.lines = append(c.lines, kvs)
	return nil
}

func TestLoggerFiltersBelowConfiguredLevel(t *testing.T) {
	cl := &countingLogger{}
	l := &Logger{base: cl, level: LevelWarn, warned: make(map[string]bool)}

	l.Debug("should be filtered", nil)
	l.Info("should be filtered too", nil)
	if len(cl.lines) != 0 {
		t.Fatalf("expected no lines logged below Warn, got %d", len(cl.lines))
	}

	l.Warn("should appear", nil)
	l.Error("should appear too", nil)
	if len(cl.lines) != 2 {
		t.Fatalf("expected 2 lines at or above Warn, got %d", len(cl.lines))
	}
}

func TestLoggerIncludesPairs(t *testing.T) {
	cl := &countingLogger{}
	l := &Logger{base: cl, level: LevelDebug, warned: make(map[string]bool)}

	l.Info("event happened", Pairs{"key": "value"})
	if len(cl.lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cl.lines))
	}
	kvs := cl.lines[0]
	found := false
	for i := 0; i+1 < len(kvs); i += 2 {
		if kvs[i] == "key" && kvs[i+1] == "value" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected key=value pair in %v", kvs)
	}
}

func TestWarnOnceFiresOnlyOnce(t *testing.T) {
	cl := &countingLogger{}
	l := &Logger{base: cl, level: LevelDebug, warned: make(map[string]bool)}

	l.WarnOnce("clockoffset.origin1", "clock skew detected", Pairs{"skew": "5s"})
	l.WarnOnce("clockoffset.origin1", "clock skew detected", Pairs{"skew": "6s"})
	l.WarnOnce("clockoffset.origin2", "clock skew detected", Pairs{"skew": "1s"})

	if len(cl.lines) != 2 {
		t.Fatalf("expected 2 lines (one per distinct key), got %d", len(cl.lines))
	}
}
