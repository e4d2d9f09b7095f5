package indicator

import "testing"

func TestHiddenBullishFires(t *testing.T) {
	// Price prints a fresh lower low while the oscillator holds above its
	// prior low.
	closes := []float64{105, 103, 100, 104, 102, 99}
	oscillator := []float64{60, 50, 30, 55, 48, 45}

	div := hiddenBullish(closes, oscillator, 6)
	if !div.Detected {
		t.Fatal("expected hidden bullish divergence")
	}
	if div.Strength <= 0 || div.Strength > 100 {
		t.Errorf("strength out of range: %v", div.Strength)
	}
}

func TestHiddenBullishRequiresFreshLowerLow(t *testing.T) {
	// Oscillator improves but price holds above the candle preceding its
	// prior low: no signal.
	closes := []float64{105, 103, 100, 104, 102, 104}
	oscillator := []float64{60, 50, 30, 55, 48, 45}

	if div := hiddenBullish(closes, oscillator, 6); div.Detected {
		t.Errorf("no lower low, must not fire: %+v", div)
	}
}

func TestHiddenBullishRequiresOscillatorImprovement(t *testing.T) {
	// Price makes a lower low and the oscillator confirms it with its own
	// fresh low: regular weakness, not divergence.
	closes := []float64{105, 103, 100, 104, 102, 99}
	oscillator := []float64{60, 50, 30, 55, 48, 25}

	if div := hiddenBullish(closes, oscillator, 6); div.Detected {
		t.Errorf("confirming oscillator low, must not fire: %+v", div)
	}
}

func TestHiddenBullishShortWindow(t *testing.T) {
	if div := hiddenBullish([]float64{100, 99}, []float64{50, 40}, 5); div.Detected {
		t.Errorf("two points cannot form a divergence: %+v", div)
	}
}

func TestHiddenBullishStrengthScalesWithImprovement(t *testing.T) {
	closes := []float64{105, 103, 100, 104, 102, 99}
	weak := hiddenBullish(closes, []float64{60, 50, 30, 55, 48, 32}, 6)
	strong := hiddenBullish(closes, []float64{60, 50, 30, 55, 48, 55}, 6)

	if !weak.Detected || !strong.Detected {
		t.Fatalf("both scenarios should fire: %+v / %+v", weak, strong)
	}
	if strong.Strength <= weak.Strength {
		t.Errorf("larger oscillator improvement should score higher: weak %v, strong %v",
			weak.Strength, strong.Strength)
	}
}
