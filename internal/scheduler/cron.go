package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/Cascade/internal/domain"
)

var ErrNoTrigger = errors.New("schedule has neither cron nor interval_sec")

// Пять полей плюс дескрипторы (@daily, @every 10m).
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// trigger приводит оба вида расписания к cron.Schedule: interval_sec
// становится cron.Every и отсчитывается от предыдущего срока.
func trigger(sched *domain.Schedule) (cron.Schedule, error) {
	switch {
	case sched.IsCron():
		s, err := cronParser.Parse(sched.CronExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", sched.CronExpr, err)
		}
		return s, nil
	case sched.IsInterval():
		return cron.Every(time.Duration(sched.IntervalSec) * time.Second), nil
	}
	return nil, ErrNoTrigger
}

// CalculateNextDue — первый срок расписания после from, в UTC.
// Cron считается в Timezone расписания (пусто = UTC), поэтому
// "0 9 * * *" в Europe/Moscow даёт 06:00 UTC.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc, err := location(sched.Timezone)
	if err != nil {
		return time.Time{}, err
	}
	t, err := trigger(sched)
	if err != nil {
		return time.Time{}, err
	}
	return t.Next(from.In(loc)).UTC(), nil
}

func ValidateCronExpr(expr string) error {
	_, err := trigger(&domain.Schedule{CronExpr: expr})
	return err
}

func location(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
