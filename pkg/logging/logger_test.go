package logging

import "testing"

func TestNewAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "", "bogus", " INFO "} {
		if l := New(level); l == nil || l.Logger == nil {
			t.Fatalf("New(%q) returned nil logger", level)
		}
	}
}

func TestComponentAndFieldsOnNilReceiver(t *testing.T) {
	var l *Logger
	if got := l.Component("test"); got == nil || got.Logger == nil {
		t.Fatal("Component on nil receiver should return a usable logger")
	}
	if got := l.WithFields("k", "v"); got == nil || got.Logger == nil {
		t.Fatal("WithFields on nil receiver should return a usable logger")
	}
}
