package textnorm

import (
	"strings"
	"testing"
	"time"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Más  Información", "mas informacion"},
		{"¿Cómo APLICAR?", "¿como aplicar?"},
		{"  año\tdiseño \n", "ano diseno"},
		{"Sí, por favor", "si, por favor"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCountWord(t *testing.T) {
	tests := []struct {
		text string
		word string
		want int
	}{
		{"no me gusta, no", "no", 2},
		{"nocturno", "no", 0},
		{"bueno bueno buenos", "bueno", 2},
		{"me encanta la idea", "me encanta", 1},
		{"si, claro", "si", 1},
		{"", "si", 0},
		{"texto", "", 0},
		{"error!", "error", 1},
	}
	for _, tt := range tests {
		if got := CountWord(tt.text, tt.word); got != tt.want {
			t.Errorf("CountWord(%q, %q) = %d, want %d", tt.text, tt.word, got, tt.want)
		}
	}
}

func TestCountWord_MultibyteNeighbours(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"¿no?", 1},
		{"😊no😊", 1},
		{"日no", 0},
		{"no日", 0},
	}
	for _, tt := range tests {
		if got := CountWord(tt.text, "no"); got != tt.want {
			t.Errorf("CountWord(%q, no) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCountWord_LargeInput(t *testing.T) {
	text := strings.Repeat("no ", 200_000)
	start := time.Now()
	if got := CountWord(text, "no"); got != 200_000 {
		t.Errorf("expected 200000 matches, got %d", got)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("CountWord on %d bytes took %v", len(text), elapsed)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hola", 10, "hola"},
		{"hola", 2, "ho"},
		{"año", 2, "a"},
		{"año", 3, "añ"},
		{"😊", 3, ""},
		{"abc", -1, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
