package telemetry

import (
	"math"
	"testing"
)

func TestNoteToFreq(t *testing.T) {
	cases := []struct {
		note string
		want float64
	}{
		{"A4", 440},
		{"A5", 880},
		{"A-4", 440},
		{"A3", 220},
		{"C#5", 554.3652619537442},
		{"E-4", 329.6275569128699},
		{"", 0},
		{"H4", 0},
		{"A", 0},
		{"A#", 0},
		{"zzz", 0},
		{"4A", 0},
	}
	for _, tc := range cases {
		got := NoteToFreq(tc.note)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("NoteToFreq(%q) = %v, want %v", tc.note, got, tc.want)
		}
	}
}

func TestDecodeCell(t *testing.T) {
	cases := []struct {
		cell       string
		note       string
		instrument int
		effect     EffectKind
	}{
		{"C-5 01 A0F", "C-5", 1, EffectVolumeSlide},
		{"C-5 01 3F", "C-5", 1, EffectTonePortamento},
		{"G-4 02 7A", "G-4", 2, EffectTremolo},
		{"C-6 04 E9", "C-6", 4, EffectRetrigger},
		{"C-5 01 99", "C-5", 1, EffectOther},
		{"C-5 01", "C-5", 1, EffectNone},
		{"C-5", "C-5", -1, EffectNone},
		{"7F", "", -1, EffectTremolo},
		{"03", "", 3, EffectNone}, // bare decimal token reads as instrument
		{"", "", -1, EffectNone},
		{"...", "", -1, EffectNone},
	}
	for _, tc := range cases {
		note, inst, effect, _ := decodeCell(tc.cell)
		if note != tc.note || inst != tc.instrument || effect != tc.effect {
			t.Errorf("decodeCell(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tc.cell, note, inst, effect, tc.note, tc.instrument, tc.effect)
		}
	}
}

func TestClassifyEffectPreservesRawIntensity(t *testing.T) {
	kind, value := classifyEffect("FF")
	if kind != EffectOther {
		t.Fatalf("expected EffectOther, got %v", kind)
	}
	if value != 1 {
		t.Fatalf("expected full intensity for FF, got %v", value)
	}
	kind, value = classifyEffect("A8")
	if kind != EffectVolumeSlide {
		t.Fatalf("expected volume slide, got %v", kind)
	}
	if math.Abs(value-8.0/15) > 1e-9 {
		t.Fatalf("unexpected param %v", value)
	}
}
