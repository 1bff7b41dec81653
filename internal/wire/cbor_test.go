package wire

import (
	"bytes"
	"testing"
)

type header struct {
	Version uint8    `cbor:"v"`
	Sizes   []uint64 `cbor:"sizes"`
	Name    string   `cbor:"name,omitempty"`
}

func TestMarshalDeterministic(t *testing.T) {
	h := header{Version: 1, Sizes: []uint64{10, 20}, Name: "x"}

	a, err := Marshal(h)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b, err := Marshal(h)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("same value produced different encodings")
	}

	// Map keys are sorted, so field order in a map does not matter.
	m1, _ := Marshal(map[string]int{"b": 2, "a": 1})
	m2, _ := Marshal(map[string]int{"a": 1, "b": 2})
	if !bytes.Equal(m1, m2) {
		t.Error("map encodings differ")
	}
}

func TestUnmarshalFirstReturnsRest(t *testing.T) {
	h := header{Version: 3, Sizes: []uint64{7}}
	encoded, err := Marshal(h)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	body := []byte("trailing body bytes")

	var got header
	rest, err := UnmarshalFirst(append(encoded, body...), &got)
	if err != nil {
		t.Fatalf("UnmarshalFirst failed: %v", err)
	}
	if got.Version != 3 || len(got.Sizes) != 1 || got.Sizes[0] != 7 {
		t.Errorf("decoded header = %+v", got)
	}
	if !bytes.Equal(rest, body) {
		t.Errorf("rest = %q, want %q", rest, body)
	}
}

func TestUnmarshalRejectsTrailingData(t *testing.T) {
	encoded, err := Marshal(header{Version: 1})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got header
	if err := Unmarshal(append(encoded, 0x00), &got); err == nil {
		t.Error("Unmarshal accepted trailing data")
	}
}
