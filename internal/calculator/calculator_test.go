package calculator

import (
	"errors"
	"testing"
	"time"
)

func TestPricing_AmountRoundsDown(t *testing.T) {
	t.Parallel()

	p := NewPricing(1000, 10)

	tests := []struct {
		name     string
		metres   int64
		perKm    int64
		expected int64
	}{
		{"exact multiple", 10_000, 15_000, 150_000},
		{"fractional km", 12_345, 15_000, 185_000},
		{"below one step", 50, 15_000, 0},
		{"zero distance", 0, 15_000, 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := p.Amount(tc.metres, tc.perKm); got != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestPricing_RangeOrdersMinExactMax(t *testing.T) {
	t.Parallel()

	p := NewPricing(1000, 10)
	for _, metres := range []int64{0, 1, 999, 1_000, 7_777, 12_345, 98_765, 1_000_000} {
		r := p.Range(metres, 17_500)
		if !(r.Min <= r.Exact && r.Exact <= r.Max) {
			t.Errorf("distance %d: expected min <= exact <= max, got %+v", metres, r)
		}
		for _, v := range []int64{r.Min, r.Exact, r.Max} {
			if v%1000 != 0 {
				t.Errorf("distance %d: %d is not a multiple of the granularity", metres, v)
			}
		}
	}
}

func TestPricing_RangeValues(t *testing.T) {
	t.Parallel()

	r := NewPricing(1000, 10).Range(20_000, 15_000)
	if r.Exact != 300_000 || r.Min != 270_000 || r.Max != 330_000 {
		t.Errorf("unexpected range %+v", r)
	}
}

func TestNewPricing_DefaultGranularity(t *testing.T) {
	t.Parallel()

	if got := NewPricing(0, 10).Granularity; got != DefaultGranularity {
		t.Errorf("expected default granularity, got %d", got)
	}
}

func TestTiming_DeliveryWindow(t *testing.T) {
	t.Parallel()

	timing := Timing{DeliveryBoundPercent: 15, ArrivalBoundPercent: 10}

	// 30 km at 30 km/h is one hour: 51 to 69 minutes.
	w, err := timing.DeliveryWindow(30_000, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Min != 51*time.Minute || w.Max != 69*time.Minute {
		t.Errorf("unexpected window %+v", w)
	}
}

func TestTiming_MinuteFloors(t *testing.T) {
	t.Parallel()

	timing := Timing{DeliveryBoundPercent: 15, ArrivalBoundPercent: 10}

	// 100 m at 60 km/h is six seconds.
	w, err := timing.ArrivalWindow(0.1, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Min != time.Minute {
		t.Errorf("expected min raised to 1 minute, got %s", w.Min)
	}
	if w.Max != 2*time.Minute {
		t.Errorf("expected max raised to 2 minutes, got %s", w.Max)
	}

	// 1.5 km at 60 km/h is 90 seconds: max 99s is one minute, raised to two.
	w, err = timing.ArrivalWindow(1.5, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Max != 2*time.Minute {
		t.Errorf("expected max of 2 minutes, got %s", w.Max)
	}
	if w.Min != time.Minute {
		t.Errorf("expected min of 1 minute, got %s", w.Min)
	}
}

func TestTiming_EqualBoundsBumpMaxByOneMinute(t *testing.T) {
	t.Parallel()

	// With no bound percentage both ends round to the same minute.
	timing := Timing{ArrivalBoundPercent: 0}

	// 7.5 km at 60 km/h is seven and a half minutes.
	w, err := timing.ArrivalWindow(7.5, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Min != 7*time.Minute || w.Max != 8*time.Minute {
		t.Errorf("expected 7m..8m, got %s..%s", w.Min, w.Max)
	}
}

func TestTiming_WindowNeverInverted(t *testing.T) {
	t.Parallel()

	timing := Timing{DeliveryBoundPercent: 15, ArrivalBoundPercent: 10}
	for _, metres := range []float64{0, 10, 400, 500, 900, 1_200, 2_500, 10_000, 55_555} {
		w, err := timing.DeliveryWindow(metres, 40)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.Min >= w.Max {
			t.Errorf("distance %v: expected min < max, got %s..%s", metres, w.Min, w.Max)
		}
		if w.Min%time.Minute != 0 || w.Max%time.Minute != 0 {
			t.Errorf("distance %v: bounds must be whole minutes, got %s..%s", metres, w.Min, w.Max)
		}
	}
}

func TestTiming_InvalidSpeed(t *testing.T) {
	t.Parallel()

	_, err := Timing{}.DeliveryWindow(1_000, 0)
	if !errors.Is(err, ErrInvalidSpeed) {
		t.Errorf("expected ErrInvalidSpeed, got %v", err)
	}
}

func TestFee_CancellationExamples(t *testing.T) {
	t.Parallel()

	pct, err := Fee{Type: FeePercentage, Value: 5}.For(100_000)
	if err != nil || pct != 5_000 {
		t.Errorf("expected 5000, got %d (%v)", pct, err)
	}

	for _, amount := range []int64{1, 100_000, 9_999_999} {
		flat, err := Fee{Type: FeeFlat, Value: 5_000}.For(amount)
		if err != nil || flat != 5_000 {
			t.Errorf("amount %d: expected flat 5000, got %d (%v)", amount, flat, err)
		}
	}
}

func TestFee_UnknownType(t *testing.T) {
	t.Parallel()

	if _, err := (Fee{Type: "ratio", Value: 1}).For(100); err == nil {
		t.Error("expected error for unknown fee type")
	}
}

func TestWithdrawalTotal(t *testing.T) {
	t.Parallel()

	fee, total, err := WithdrawalTotal(200_000, Fee{Type: FeePercentage, Value: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee != 10_000 || total != 210_000 {
		t.Errorf("expected fee 10000 and total 210000, got %d and %d", fee, total)
	}
}
