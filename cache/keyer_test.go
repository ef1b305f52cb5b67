package cache

import (
	"strings"
	"testing"
)

func TestKeyer_DeterministicForMaps(t *testing.T) {
	keyer := NewDefaultKeyer()

	map1 := map[string]any{"b": 2, "a": 1, "c": map[string]any{"y": true, "x": "v"}}
	map2 := map[string]any{"c": map[string]any{"x": "v", "y": true}, "a": 1, "b": 2}

	key1, err := keyer.Key("listWorkflows", map1)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	key2, err := keyer.Key("listWorkflows", map2)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if key1 != key2 {
		t.Errorf("keys differ for same content:\n  key1=%s\n  key2=%s", key1, key2)
	}
}

func TestKeyer_ArrayOrderPreserved(t *testing.T) {
	keyer := NewDefaultKeyer()

	key1, _ := keyer.Key("listExecutions", map[string]any{"ids": []any{"1", "2"}})
	key2, _ := keyer.Key("listExecutions", map[string]any{"ids": []any{"2", "1"}})
	if key1 == key2 {
		t.Errorf("keys should differ for different array order: %s", key1)
	}
}

func TestKeyer_Format(t *testing.T) {
	keyer := NewDefaultKeyer()

	key, err := keyer.Key("getWorkflow", map[string]string{"id": "42"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	parts := strings.Split(key, ":")
	if len(parts) != 3 {
		t.Fatalf("key %q has %d parts, want 3", key, len(parts))
	}
	if parts[0] != "n8n" || parts[1] != "getWorkflow" {
		t.Errorf("key = %q, want n8n:getWorkflow:<hash>", key)
	}
	if len(parts[2]) != 16 {
		t.Errorf("hash length = %d, want 16", len(parts[2]))
	}
	if !strings.HasPrefix(key, keyer.OperationPrefix("getWorkflow")) {
		t.Errorf("key %q does not start with operation prefix", key)
	}
}

func TestKeyer_NilParams(t *testing.T) {
	keyer := NewDefaultKeyer()

	key, err := keyer.Key("listNodeTypes", nil)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if key != "n8n:listNodeTypes" {
		t.Errorf("key = %q, want n8n:listNodeTypes", key)
	}
}

func TestKeyer_DifferentOperations(t *testing.T) {
	keyer := NewDefaultKeyer()
	params := map[string]any{"id": "1"}

	key1, _ := keyer.Key("getWorkflow", params)
	key2, _ := keyer.Key("getExecution", params)
	if key1 == key2 {
		t.Error("different operations produced the same key")
	}
}

func TestKeyer_UnmarshalableParams(t *testing.T) {
	keyer := NewDefaultKeyer()

	_, err := keyer.Key("op", map[string]any{"fn": func() {}})
	if err == nil {
		t.Fatal("expected error for unmarshalable params")
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{"valid", "n8n:getWorkflow:abc", nil},
		{"empty", "", ErrInvalidKey},
		{"whitespace", "   ", ErrInvalidKey},
		{"newline", "a\nb", ErrInvalidKey},
		{"too long", strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
		{"max length", strings.Repeat("k", MaxKeyLength), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateKey(tt.key); got != tt.want {
				t.Errorf("ValidateKey() = %v, want %v", got, tt.want)
			}
		})
	}
}
