package service

import (
	"context"
	"fmt"
	"time"
)

type studentCounter interface {
	Count(ctx context.Context) (int64, error)
}

// RegistrationNumberGenerator derives human-readable registration numbers
// from the current period and the store's row count: YYYYMM followed by a
// 6-digit zero-padded sequence. Two concurrent creations can derive the
// same sequence; the unique index on registration_number arbitrates and the
// losing insert surfaces as a conflict.
type RegistrationNumberGenerator struct {
	counter studentCounter
	now     func() time.Time
}

// NewRegistrationNumberGenerator constructs a generator backed by the
// student store count.
func NewRegistrationNumberGenerator(counter studentCounter) *RegistrationNumberGenerator {
	return &RegistrationNumberGenerator{counter: counter, now: time.Now}
}

// Next returns the next registration number.
func (g *RegistrationNumberGenerator) Next(ctx context.Context) (string, error) {
	count, err := g.counter.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("count students for registration number: %w", err)
	}
	now := g.now()
	return fmt.Sprintf("%04d%02d%06d", now.Year(), int(now.Month()), count+1), nil
}
