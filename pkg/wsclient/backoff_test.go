package wsclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func nextN(t *testing.T, p BackoffPolicy, n int) []time.Duration {
	t.Helper()
	b := p.New()
	out := make([]time.Duration, 0, n)
	for i := 0; i < n; i++ {
		d, stop := b.Next()
		if stop {
			break
		}
		out = append(out, d)
	}
	return out
}

func TestBackoff_ExponentialCapped(t *testing.T) {
	got := nextN(t, BackoffPolicy{Base: 10 * time.Millisecond, Max: 40 * time.Millisecond}, 5)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		40 * time.Millisecond,
		40 * time.Millisecond,
		40 * time.Millisecond,
	}, got)
}

func TestBackoff_Constant(t *testing.T) {
	got := nextN(t, BackoffPolicy{Constant: true, Base: 5 * time.Millisecond}, 3)
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond}, got)
}

func TestBackoff_MaxRetries(t *testing.T) {
	got := nextN(t, BackoffPolicy{Base: time.Millisecond, MaxRetries: 2}, 10)
	assert.Len(t, got, 2)
}

func TestBackoff_JitterStaysInBounds(t *testing.T) {
	p := BackoffPolicy{Constant: true, Base: 100 * time.Millisecond, Jitter: 20 * time.Millisecond}
	for _, d := range nextN(t, p, 50) {
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}

func TestBackoff_NewSeriesStartsOver(t *testing.T) {
	p := BackoffPolicy{Base: 10 * time.Millisecond}
	first := p.New()
	first.Next()
	first.Next()

	d, _ := p.New().Next()
	assert.Equal(t, 10*time.Millisecond, d)
}
