package stream

import (
	"testing"
	"time"
)

func TestBackoff_Doubling(t *testing.T) {
	bo := newBackoff(time.Second, 1, 0)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, w := range want {
		if got := bo.NextBackOff(); got != w {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoff_InitialFactor(t *testing.T) {
	bo := newBackoff(2*time.Second, 3, 0)

	if got := bo.NextBackOff(); got != 6*time.Second {
		t.Errorf("first delay = %v, want 6s", got)
	}
	if got := bo.NextBackOff(); got != 12*time.Second {
		t.Errorf("second delay = %v, want 12s", got)
	}
}

func TestBackoff_Cap(t *testing.T) {
	bo := newBackoff(time.Second, 1, 5*time.Second)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}
	for i, w := range want {
		if got := bo.NextBackOff(); got != w {
			t.Errorf("attempt %d: delay = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoff_ZeroFactorNormalized(t *testing.T) {
	bo := newBackoff(time.Second, 0, 0)

	if got := bo.NextBackOff(); got != time.Second {
		t.Errorf("first delay = %v, want 1s", got)
	}
}
