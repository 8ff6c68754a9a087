// Package clock работает со временем в часовом поясе клиники.
//
// Все даты приемов интерпретируются относительно одного пояса ClinicTimezone.
// Пояс не настраивается: тот же литерал использует уникальный индекс
// uq_appointments_patient_day в миграциях.
package clock

import (
	"fmt"
	"time"
	// База поясов встроена в бинарник, образ может не содержать zoneinfo.
	_ "time/tzdata"
)

// ClinicTimezone пояс клиники.
const ClinicTimezone = "America/Argentina/Buenos_Aires"

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Clock возвращает текущее время и разбирает даты в поясе клиники.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New создает Clock в поясе клиники.
func New() (*Clock, error) {
	const op = "clock.New"
	loc, err := time.LoadLocation(ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixed создает Clock, у которого Now всегда возвращает t.
func NewFixed(loc *time.Location, t time.Time) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return t }}
}

// Location пояс клиники.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now текущее время в поясе клиники.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// DayBounds возвращает полуинтервал [начало дня, начало следующего дня) для t.
func (c *Clock) DayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(c.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// Parse разбирает дату. Строки без смещения считаются временем клиники.
func (c *Clock) Parse(value string) (time.Time, error) {
	const op = "clock.Parse"
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, c.loc); err == nil {
			return t.In(c.loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: unsupported date format %q", op, value)
}
