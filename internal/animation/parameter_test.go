package animation

import (
	"math"
	"testing"
)

func TestForwardLinear(t *testing.T) {
	p := &Parameter{Start: 0, End: 100, Duration: 1000, Direction: Forward, Interpolation: Linear}

	prev := math.Inf(-1)
	for tick := 0; tick <= 40; tick++ {
		v := p.Interpolate(false)
		if v < prev {
			t.Fatalf("tick %d: value decreased %.3f -> %.3f", tick, prev, v)
		}
		if tick == 15 && math.Abs(v-50) > 1e-9 {
			t.Errorf("tick 15: expected 50, got %.3f", v)
		}
		if tick >= 30 && v != 100 {
			t.Errorf("tick %d: expected clamp at 100, got %.3f", tick, v)
		}
		prev = v
	}
}

func TestDelayHoldsStart(t *testing.T) {
	// 500ms при 30fps = 15 кадров задержки
	p := &Parameter{Start: 10, End: 20, Duration: 1000, Delay: 500, Direction: Forward, Interpolation: Linear}
	for tick := 0; tick < 15; tick++ {
		if v := p.Interpolate(false); v != 10 {
			t.Fatalf("tick %d: expected start value during delay, got %.3f", tick, v)
		}
	}
}

func TestReverseMirrorsForward(t *testing.T) {
	fwd := &Parameter{Start: 0, End: 60, Duration: 500, Direction: Forward, Interpolation: EaseOut}
	rev := &Parameter{Start: 0, End: 60, Duration: 500, Direction: Reverse, Interpolation: EaseOut}
	for tick := 0; tick < 20; tick++ {
		a, b := fwd.Interpolate(true), rev.Interpolate(true)
		if math.Abs((a+b)-60) > 1e-9 {
			t.Errorf("tick %d: forward %.3f + reverse %.3f != 60", tick, a, b)
		}
	}
}

func TestCircleFlips(t *testing.T) {
	p := &Parameter{Start: 0, End: 100, Duration: 1000, Direction: Circle, Interpolation: Linear}

	values := make([]float64, 0, 91)
	for tick := 0; tick <= 90; tick++ {
		v := p.Interpolate(false)
		if v < 0 || v > 100 {
			t.Fatalf("tick %d: value %.3f outside [0,100]", tick, v)
		}
		values = append(values, v)
	}

	if values[30] != 100 {
		t.Errorf("tick 30: expected 100, got %.3f", values[30])
	}
	if values[31] >= 100 {
		t.Errorf("tick 31: expected descent after flip, got %.3f", values[31])
	}
	if values[60] != 0 {
		t.Errorf("tick 60: expected 0, got %.3f", values[60])
	}
	if values[61] <= 0 {
		t.Errorf("tick 61: expected ascent after second flip, got %.3f", values[61])
	}
}

func TestEasing(t *testing.T) {
	in := &Parameter{Interpolation: EaseIn}
	out := &Parameter{Interpolation: EaseOut}

	tests := []struct {
		x, in, out float64
	}{
		{0, 0, 0},
		{0.5, 0.125, 0.875},
		{1, 1, 1},
	}
	for _, tt := range tests {
		if got := in.ease(tt.x); math.Abs(got-tt.in) > 1e-9 {
			t.Errorf("easeIn(%.2f) = %.4f, want %.4f", tt.x, got, tt.in)
		}
		if got := out.ease(tt.x); math.Abs(got-tt.out) > 1e-9 {
			t.Errorf("easeOut(%.2f) = %.4f, want %.4f", tt.x, got, tt.out)
		}
	}
}

func TestZeroDuration(t *testing.T) {
	p := &Parameter{Start: 5, End: 9, Direction: Forward, Interpolation: Linear}
	if v := p.Interpolate(false); v != 9 {
		t.Errorf("expected immediate end value, got %.3f", v)
	}
}

func TestCloneResetsState(t *testing.T) {
	p := &Parameter{Start: 0, End: 100, Duration: 1000, Direction: Forward, Interpolation: Linear}
	for i := 0; i < 10; i++ {
		p.Interpolate(false)
	}
	c := p.Clone()
	if v := c.Interpolate(false); v != 0 {
		t.Errorf("clone should start from tick 0, got %.3f", v)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		p       Parameter
		wantErr bool
	}{
		{Parameter{Direction: Forward, Interpolation: Linear}, false},
		{Parameter{Direction: "sideways", Interpolation: Linear}, true},
		{Parameter{Direction: Circle, Interpolation: "bounce"}, true},
		{Parameter{Direction: Reverse, Interpolation: EaseIn, Duration: -1}, true},
	}
	for _, tt := range tests {
		err := tt.p.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v): err=%v, wantErr=%v", tt.p, err, tt.wantErr)
		}
	}
}
