package orchestrator

import "testing"

func TestNoopNotifierDiscardsEvents(t *testing.T) {
	var n Notifier = NoopNotifier{}
	// Neither call should panic regardless of zero-value event contents.
	n.NotifyCompletion(CompletionEvent{})
	n.NotifySystemError(SystemErrorEvent{})
}

func TestConfigDefaultsToNoopNotifierAndDefaultLogger(t *testing.T) {
	cfg := Config{}
	if _, ok := cfg.notifier().(NoopNotifier); !ok {
		t.Errorf("expected NoopNotifier default, got %T", cfg.notifier())
	}
	if cfg.logger() == nil {
		t.Error("expected a non-nil default logger")
	}
}
