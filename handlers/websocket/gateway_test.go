package websocket

import (
	"testing"

	"codeshare-server/core"
)

func TestDecodeFirst_EditOperation(t *testing.T) {
	// Socket.IO hands JSON payloads over as map[string]any.
	payload := map[string]any{
		"text":        "hello\nworld",
		"startLine":   float64(2),
		"startColumn": float64(1),
		"endLine":     float64(3),
		"endColumn":   float64(4),
	}

	var op core.EditOperation
	if err := decodeFirst([]any{payload}, &op); err != nil {
		t.Fatalf("decodeFirst() failed: %v", err)
	}

	want := core.EditOperation{Text: "hello\nworld", StartLine: 2, StartColumn: 1, EndLine: 3, EndColumn: 4}
	if op != want {
		t.Errorf("decodeFirst() = %+v, want %+v", op, want)
	}
}

func TestDecodeFirst_Cursor(t *testing.T) {
	payload := map[string]any{
		"positionLine":   float64(5),
		"positionColumn": float64(12),
	}

	var cursor core.Cursor
	if err := decodeFirst([]any{payload}, &cursor); err != nil {
		t.Fatalf("decodeFirst() failed: %v", err)
	}
	if cursor.PositionLine != 5 || cursor.PositionColumn != 12 {
		t.Errorf("cursor = %+v, want position 5:12", cursor)
	}
	if cursor.HasSelection() {
		t.Error("cursor without selection fields reports a selection")
	}
}

func TestDecodeFirst_MissingPayload(t *testing.T) {
	var op core.EditOperation
	if err := decodeFirst(nil, &op); err == nil {
		t.Error("decodeFirst() succeeded with no payload")
	}
}

func TestDisplayNameOf(t *testing.T) {
	tests := []struct {
		name  string
		datas []any
		want  string
	}{
		{name: "bare string", datas: []any{"alice"}, want: "alice"},
		{name: "object", datas: []any{map[string]any{"displayName": "bob"}}, want: "bob"},
		{name: "empty args", datas: nil, want: ""},
		{name: "unrelated object", datas: []any{map[string]any{"x": 1}}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayNameOf(tt.datas); got != tt.want {
				t.Errorf("displayNameOf() = %q, want %q", got, tt.want)
			}
		})
	}
}
