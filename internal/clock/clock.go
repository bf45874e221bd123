// Package clock — источник текущего времени, подменяемый в тестах.
package clock

import "time"

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// Real — системные часы в UTC.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Fixed всегда возвращает одно и то же время.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }

// Today — начало текущих суток (UTC) для сравнения дат без времени.
func Today(c Clock) time.Time {
	return DateOnly(c.Now())
}

// DateOnly отбрасывает время суток, оставляя дату в UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var (
	_ Clock = Real{}
	_ Clock = Fixed{}
)
