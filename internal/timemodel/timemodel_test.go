package timemodel

import (
	"errors"
	"math"
	"testing"
)

func TestTimeToOffset(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		pps     float64
		want    float64
		wantErr bool
	}{
		{name: "zero", seconds: 0, pps: 50, want: 0},
		{name: "default scale", seconds: 2.5, pps: DefaultPixelsPerSecond, want: 125},
		{name: "fractional scale", seconds: 4, pps: 0.5, want: 2},
		{name: "zero scale", seconds: 1, pps: 0, wantErr: true},
		{name: "negative scale", seconds: 1, pps: -10, wantErr: true},
		{name: "negative time", seconds: -1, pps: 50, wantErr: true},
		{name: "nan time", seconds: math.NaN(), pps: 50, wantErr: true},
		{name: "inf scale", seconds: 1, pps: math.Inf(1), wantErr: true},
		{name: "product overflows", seconds: 1e308, pps: 10, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TimeToOffset(tc.seconds, tc.pps)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidParameter) {
					t.Fatalf("TimeToOffset() error = %v, want ErrInvalidParameter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("TimeToOffset() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("TimeToOffset(%v, %v) = %v, want %v", tc.seconds, tc.pps, got, tc.want)
			}
		})
	}
}

func TestOffsetToTime_RoundTrip(t *testing.T) {
	for _, seconds := range []float64{0, 0.04, 1, 12.5, 3600} {
		off, err := TimeToOffset(seconds, 80)
		if err != nil {
			t.Fatalf("TimeToOffset() error = %v", err)
		}
		back, err := OffsetToTime(off, 80)
		if err != nil {
			t.Fatalf("OffsetToTime() error = %v", err)
		}
		if math.Abs(back-seconds) > 1e-9 {
			t.Errorf("round trip %v -> %v -> %v", seconds, off, back)
		}
	}
}

func TestOffsetToTime_InvalidScale(t *testing.T) {
	if _, err := OffsetToTime(100, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("OffsetToTime() error = %v, want ErrInvalidParameter", err)
	}
	if _, err := OffsetToTime(1e308, 1e-10); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("OffsetToTime(overflow) error = %v, want ErrInvalidParameter", err)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{name: "disjoint", a: Interval{0, 2}, b: Interval{3, 5}, want: false},
		{name: "adjacent", a: Interval{0, 5}, b: Interval{5, 8}, want: false},
		{name: "adjacent reversed", a: Interval{5, 8}, b: Interval{0, 5}, want: false},
		{name: "partial", a: Interval{0, 5}, b: Interval{3, 8}, want: true},
		{name: "identical", a: Interval{1, 4}, b: Interval{1, 4}, want: true},
		{name: "contained", a: Interval{0, 10}, b: Interval{2, 3}, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if got := Overlaps(tc.b, tc.a); got != tc.want {
				t.Errorf("Overlaps is not symmetric for %v, %v", tc.a, tc.b)
			}
		})
	}
}

func TestInterval_ContainsAndInside(t *testing.T) {
	iv := Interval{Start: 2, End: 6}
	if !iv.Contains(2) || iv.Contains(6) {
		t.Error("Contains should be half-open [2,6)")
	}
	if iv.StrictlyInside(2) || iv.StrictlyInside(6) || !iv.StrictlyInside(4) {
		t.Error("StrictlyInside should exclude both endpoints")
	}
	if iv.Duration() != 4 {
		t.Errorf("Duration() = %v, want 4", iv.Duration())
	}
	if (Interval{Start: 3, End: 3}).Valid() {
		t.Error("empty interval should not be valid")
	}
}

func TestSeekTime(t *testing.T) {
	tests := []struct {
		name   string
		offset float64
		want   float64
		wantOK bool
	}{
		{name: "inside", offset: 100, want: 2, wantOK: true},
		{name: "before start", offset: -20, want: 0, wantOK: false},
		{name: "past end", offset: 1000, want: 10, wantOK: false},
		{name: "exact end", offset: 500, want: 10, wantOK: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := SeekTime(tc.offset, 50, 10)
			if err != nil {
				t.Fatalf("SeekTime() error = %v", err)
			}
			if got != tc.want || ok != tc.wantOK {
				t.Errorf("SeekTime(%v) = (%v, %v), want (%v, %v)", tc.offset, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestTimelineWidth(t *testing.T) {
	got, err := TimelineWidth(30, 50)
	if err != nil {
		t.Fatalf("TimelineWidth() error = %v", err)
	}
	if got != 1500 {
		t.Errorf("TimelineWidth() = %v, want 1500", got)
	}
	if _, err := TimelineWidth(math.MaxFloat64, 2); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("TimelineWidth(overflow) error = %v, want ErrInvalidParameter", err)
	}
}
