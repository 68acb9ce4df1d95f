// Package ordernum hands out human-facing order numbers of the form
// RB<yymmdd><seq>, where seq restarts at 1 every UTC day.
package ordernum

import (
	"context"
	"fmt"
	"time"
)

const prefix = "RB"

type Generator interface {
	Next(ctx context.Context) (string, error)
}

// Format renders an order number; seq is zero padded to four digits and
// grows wider past 9999.
func Format(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%04d", prefix, DayKey(day), seq)
}

func DayKey(t time.Time) string {
	return t.UTC().Format("060102")
}

// Counter bumps a per-day sequence and returns the new value.
type Counter interface {
	NextOrderSequence(ctx context.Context, day string) (int64, error)
}

// DBSequence keeps the daily counter in the order_sequences table.
type DBSequence struct {
	Counter Counter
	Now     func() time.Time
}

func NewDBSequence(c Counter) *DBSequence {
	return &DBSequence{Counter: c, Now: time.Now}
}

func (s *DBSequence) Next(ctx context.Context) (string, error) {
	now := s.Now()
	seq, err := s.Counter.NextOrderSequence(ctx, DayKey(now))
	if err != nil {
		return "", fmt.Errorf("ordernum: next db sequence: %w", err)
	}
	return Format(now, seq), nil
}
