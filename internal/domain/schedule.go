package domain

import "time"

// Schedule — запуск pipeline по cron ("0 9 * * *", "@hourly") или
// каждые IntervalSec секунд. При заданном CronExpr интервал
// игнорируется. Cron считается в Timezone (пусто = UTC).
//
// Описание читается из YAML; NextDueAt и Last* ведёт scheduler
// в памяти и в файл они не попадают.
type Schedule struct {
	Name        string         `yaml:"name" json:"name"`
	Pipeline    string         `yaml:"pipeline" json:"pipeline"`
	CronExpr    string         `yaml:"cron,omitempty" json:"cron_expr,omitempty"`
	IntervalSec int            `yaml:"interval_sec,omitempty" json:"interval_sec,omitempty"`
	Timezone    string         `yaml:"timezone,omitempty" json:"timezone"`
	Disabled    bool           `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Params      map[string]any `yaml:"params,omitempty" json:"params,omitempty"`

	NextDueAt *time.Time `yaml:"-" json:"next_due_at,omitempty"`
	LastRunAt *time.Time `yaml:"-" json:"last_run_at,omitempty"`

	// LastRequest — ID run или сообщения run.requested.
	LastRequest string `yaml:"-" json:"last_request,omitempty"`
}

func (s *Schedule) IsCron() bool { return s.CronExpr != "" }

func (s *Schedule) IsInterval() bool { return !s.IsCron() && s.IntervalSec > 0 }

// IsDue — срок наступил (now >= NextDueAt) и расписание включено.
func (s *Schedule) IsDue(now time.Time) bool {
	return !s.Disabled && s.NextDueAt != nil && !now.Before(*s.NextDueAt)
}

// RecordRun фиксирует запуск в at и следующий срок.
func (s *Schedule) RecordRun(request string, at, nextDue time.Time) {
	s.LastRunAt, s.NextDueAt = &at, &nextDue
	s.LastRequest = request
}
