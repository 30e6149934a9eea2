package config

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDurationMarshalJSON(t *testing.T) {
	d := Duration(90 * time.Second)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"1m30s"` {
		t.Fatalf("got %s, want \"1m30s\"", b)
	}
}

func TestDurationUnmarshalJSON(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"5m"`), &d); err != nil {
		t.Fatal(err)
	}
	if d.Std() != 5*time.Minute {
		t.Fatalf("got %s, want 5m", d.Std())
	}
}

func TestDurationUnmarshalJSONInvalid(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"not-a-duration"`), &d); err == nil {
		t.Fatal("expected error for invalid duration string")
	}
	if err := json.Unmarshal([]byte(`5`), &d); err == nil {
		t.Fatal("expected error for non-string JSON value")
	}
}

func TestDurationRoundTrip(t *testing.T) {
	type wrapper struct {
		Timeout Duration `json:"timeout"`
	}
	in := wrapper{Timeout: Duration(250 * time.Millisecond)}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out wrapper
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out.Timeout.Std() != in.Timeout.Std() {
		t.Fatalf("round trip mismatch: got %s, want %s", out.Timeout.Std(), in.Timeout.Std())
	}
}
