package domain

import "testing"

func TestRowMapString(t *testing.T) {
	row := RowMap{
		"texto":    "  SP-01  ",
		"numero":   float64(88012345678),
		"decimal":  12.5,
		"inteiro":  42,
		"vazio":    nil,
		"booleano": true,
	}

	testCases := []struct {
		name string
		key  string
		want string
	}{
		{name: "trims strings", key: "texto", want: "SP-01"},
		{name: "large float keeps all digits", key: "numero", want: "88012345678"},
		{name: "decimal float", key: "decimal", want: "12.5"},
		{name: "int", key: "inteiro", want: "42"},
		{name: "nil value", key: "vazio", want: ""},
		{name: "absent key", key: "inexistente", want: ""},
		{name: "unsupported type", key: "booleano", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := row.String(tc.key); got != tc.want {
				t.Errorf("String(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestChunkRoundTrip(t *testing.T) {
	rows := []RowMap{
		{"Pedido": "100", "Valor": 12.5},
		{"Pedido": "101", "Valor": nil},
	}

	chunk, err := NewChunk("batch-1", 3, rows)
	if err != nil {
		t.Fatalf("NewChunk failed: %v", err)
	}
	if chunk.RowCount != 2 || chunk.ChunkNumber != 3 {
		t.Errorf("chunk meta = (%d rows, number %d), want (2, 3)", chunk.RowCount, chunk.ChunkNumber)
	}

	decoded, err := chunk.DecodeRows()
	if err != nil {
		t.Fatalf("DecodeRows failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d rows, want 2", len(decoded))
	}
	if got := decoded[0].String("Pedido"); got != "100" {
		t.Errorf("decoded Pedido = %q, want 100", got)
	}
	// JSON numbers come back as float64; String must still format them.
	if got := decoded[0].String("Valor"); got != "12.5" {
		t.Errorf("decoded Valor = %q, want 12.5", got)
	}
}

func TestIsValidDriverStatus(t *testing.T) {
	for _, s := range DriverStatuses {
		if !IsValidDriverStatus(s) {
			t.Errorf("IsValidDriverStatus(%q) = false, want true", s)
		}
	}
	if IsValidDriverStatus("Sumiu") {
		t.Error("IsValidDriverStatus(Sumiu) = true, want false")
	}
	if IsValidDriverStatus("") {
		t.Error("IsValidDriverStatus(\"\") = true, want false")
	}
}
