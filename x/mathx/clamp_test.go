package mathx

import "testing"

func TestClampSwapsBounds(t *testing.T) {
	if got := Clamp(15, 10, 0); got != 10 {
		t.Fatalf("Clamp(15,10,0) = %d", got)
	}
	if got := Clamp(-3, 0, 10); got != 0 {
		t.Fatalf("Clamp(-3,0,10) = %d", got)
	}
	if got := Clamp(7.5, 0.0, 10.0); got != 7.5 {
		t.Fatalf("Clamp(7.5) = %v", got)
	}
}

func TestAbsSign(t *testing.T) {
	for _, c := range []struct{ in, abs, sign int64 }{
		{-810, 810, -1},
		{0, 0, 0},
		{42, 42, 1},
	} {
		if Abs(c.in) != c.abs || Sign(c.in) != c.sign {
			t.Fatalf("in=%d abs=%d sign=%d", c.in, Abs(c.in), Sign(c.in))
		}
	}
	if Max(uint32(30), 240) != 240 || Min(int64(121), 270) != 121 {
		t.Fatal("min/max")
	}
}
