package steps

import (
	"context"
	"fmt"
	"time"
)

// StepTypeDelay — пауза заданной длины.
const StepTypeDelay = "delay"

const (
	configDuration    = "duration"
	configDurationSec = "duration_sec"
	configDurationMs  = "duration_ms"
)

// DelayStep ждёт указанное время или отмену контекста.
//
//	config:
//	  duration: 1m30s      # time.ParseDuration
//	  duration_sec: 10
//	  duration_ms: 500
//
// Ключи проверяются в этом порядке, первый непустой выигрывает.
// Значение action: {slept_ms: <int64>}.
type DelayStep struct{}

func NewDelayStep() *DelayStep { return &DelayStep{} }

func (*DelayStep) Type() string { return StepTypeDelay }

func (s *DelayStep) Execute(ctx context.Context, req *Request) (*Response, error) {
	d, err := delayOf(req.Config)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
	}
	return NewResponse(map[string]any{
		"slept_ms": time.Since(started).Milliseconds(),
	}), nil
}

func delayOf(config map[string]any) (time.Duration, error) {
	if raw := GetConfigString(config, configDuration); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return 0, fmt.Errorf("%w: delay: duration %q", ErrInvalidConfig, raw)
		}
		return d, nil
	}
	if n := GetConfigInt(config, configDurationSec); n > 0 {
		return time.Duration(n) * time.Second, nil
	}
	if n := GetConfigInt(config, configDurationMs); n > 0 {
		return time.Duration(n) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("%w: delay: one of duration, duration_sec, duration_ms is required", ErrInvalidConfig)
}
