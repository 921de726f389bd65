package tai

import "testing"

func TestAddSubRoundTrip(t *testing.T) {
	cases := []struct{ a, b Timestamp }{
		{Timestamp{100, 0, 0}, Timestamp{0, 12_500, 0}},
		{Timestamp{1, 100, 4000}, Timestamp{0, 200, 200}},
		{Timestamp{0, 0, 0}, Timestamp{0, 0, 0}},
		{Timestamp{5, 124_999_999, 4095}, Timestamp{0, 2, 2}},
	}
	for _, c := range cases {
		sum := Add(c.a, c.b)
		got := Sub(sum, c.b)
		if got != c.a {
			t.Errorf("Sub(Add(%v,%v),%v) = %v, want %v", c.a, c.b, c.b, got, c.a)
		}
	}
}

func TestAddCarry(t *testing.T) {
	got := Add(Timestamp{0, TicksPerSecond - 1, FracPerTick - 1}, Timestamp{0, 0, 2})
	want := Timestamp{1, 0, 1}
	if got != want {
		t.Errorf("Add carry = %v, want %v", got, want)
	}
}

func TestSubBeforeEpoch(t *testing.T) {
	got := Sub(Timestamp{0, 100, 0}, Timestamp{0, 200, 0})
	if !got.IsPast() {
		t.Errorf("expected IsPast, got %v", got)
	}
	if got.Seconds != 0 {
		t.Errorf("expected Seconds clamped to 0, got %d", got.Seconds)
	}
}

func TestCompare(t *testing.T) {
	a := Timestamp{1, 0, 0}
	b := Timestamp{1, 0, 1}
	if !Before(a, b) {
		t.Errorf("expected %v before %v", a, b)
	}
	if Before(b, a) {
		t.Errorf("expected %v not before %v", b, a)
	}
	if Compare(a, a) != 0 {
		t.Errorf("expected equal timestamps to compare 0")
	}
}
