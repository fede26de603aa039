package transform

import (
	"math"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"exp", KindExp, false},
		{"", KindExp, false},
		{"none", KindNone, false},
		{"log", KindExp, true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestForwardInverse(t *testing.T) {
	for _, v := range []float64{-3, -0.5, 0, 0.5, 5} {
		ext := Forward(KindExp, v)
		if ext <= 0 {
			t.Errorf("Forward(exp, %f) = %f, want positive", v, ext)
		}
		back := Inverse(KindExp, ext)
		if math.Abs(back-v) > 1e-12 {
			t.Errorf("Inverse(Forward(%f)) = %f", v, back)
		}
	}

	if Forward(KindNone, 1.5) != 1.5 || Inverse(KindNone, 1.5) != 1.5 {
		t.Error("KindNone must be identity")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{0, 0, 1, 0},
		{1, 0, 1, 1},
	}

	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%f, %f, %f) = %f, want %f", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestTruncateInternal(t *testing.T) {
	// Inside bounds: value must come back bit for bit.
	v, clipped := TruncateInternal(KindExp, 0, 0, 2)
	if clipped || v != 0 {
		t.Errorf("TruncateInternal inside bounds: got (%f, %v)", v, clipped)
	}

	// exp(5) well above the ceiling of 2: re-expressed as ln(2).
	v, clipped = TruncateInternal(KindExp, 5, 0, 2)
	if !clipped {
		t.Fatal("expected clip above upper bound")
	}
	if math.Abs(v-math.Log(2)) > 1e-12 {
		t.Errorf("clipped value = %f, want ln(2) = %f", v, math.Log(2))
	}

	// Below the floor.
	v, clipped = TruncateInternal(KindExp, -50, 0.5, 2)
	if !clipped {
		t.Fatal("expected clip below lower bound")
	}
	if math.Abs(v-math.Log(0.5)) > 1e-12 {
		t.Errorf("clipped value = %f, want ln(0.5)", v)
	}
}

func TestOutputIdempotent(t *testing.T) {
	a := Output(KindExp, 5, 0, 2)
	b := Output(KindExp, 5, 0, 2)
	if a != b || a != 2 {
		t.Errorf("Output not stable: %f vs %f", a, b)
	}
}
