package wsclient

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// BackoffPolicy описывает паузы между попытками переподключения.
// Каждая серия неудачных попыток начинается с New(), успешное подключение серию сбрасывает.
type BackoffPolicy struct {
	// Constant - одинаковая пауза Base вместо экспоненциального роста.
	Constant bool
	Base     time.Duration
	// Max ограничивает паузу сверху, 0 - без ограничения.
	Max    time.Duration
	Jitter time.Duration
	// MaxRetries - число попыток в серии, 0 - бесконечно.
	MaxRetries uint64
}

func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Base:   time.Second,
		Max:    30 * time.Second,
		Jitter: 500 * time.Millisecond,
	}
}

func (p BackoffPolicy) New() retry.Backoff {
	base := p.Base
	if base <= 0 {
		base = time.Second
	}

	var b retry.Backoff
	if p.Constant {
		b = retry.NewConstant(base)
	} else {
		b = retry.NewExponential(base)
	}
	if p.Jitter > 0 {
		b = retry.WithJitter(p.Jitter, b)
	}
	if p.Max > 0 {
		b = retry.WithCappedDuration(p.Max, b)
	}
	if p.MaxRetries > 0 {
		b = retry.WithMaxRetries(p.MaxRetries, b)
	}
	return b
}
