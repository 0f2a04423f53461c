package sim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"laundry-branch-monitor/internal/parse"
)

var (
	// ErrMalformedClock is returned when a record's time of day cannot be read.
	ErrMalformedClock = errors.New("malformed transaction clock")
	// ErrMalformedDate is returned when a record's calendar date cannot be read.
	ErrMalformedDate = errors.New("malformed transaction date")
)

// Record is a transaction as delivered by the back office.
type Record struct {
	Code     string `json:"code" yaml:"code"`
	Clock    string `json:"time" yaml:"time"` // "HH.MM", 24h
	Date     string `json:"date" yaml:"date"` // "2006-01-02"
	Services string `json:"services" yaml:"services"`
	Canceled bool   `json:"canceled" yaml:"canceled"`
	Own      bool   `json:"is_own" yaml:"is_own"`
}

// Transaction is a record with its start time resolved. It is never mutated
// by the simulator.
type Transaction struct {
	Code     string
	Clock    string
	Start    time.Time
	Services ServiceCounts
	Canceled bool
	Own      bool
}

// NewTransaction resolves rec in the branch timezone.
func NewTransaction(rec Record, loc *time.Location) (Transaction, error) {
	start, err := parse.ParseDateClock(rec.Date, rec.Clock, loc)
	switch {
	case errors.Is(err, parse.ErrInvalidDate):
		return Transaction{}, fmt.Errorf("%w: %v", ErrMalformedDate, err)
	case err != nil:
		return Transaction{}, fmt.Errorf("%w: %v", ErrMalformedClock, err)
	}
	return Transaction{
		Code:     rec.Code,
		Clock:    rec.Clock,
		Start:    start,
		Services: ParseServices(rec.Services),
		Canceled: rec.Canceled,
		Own:      rec.Own,
	}, nil
}

// Finish is the end of the sequential service chain.
func (t Transaction) Finish() time.Time {
	return t.Start.Add(t.Services.Duration())
}

// key is what the starting machine index is derived from.
func (t Transaction) key() string {
	if t.Code != "" {
		return t.Code
	}
	return t.Clock
}

// SameDay reports whether t belongs to the calendar day of now in loc.
func (t Transaction) SameDay(now time.Time, loc *time.Location) bool {
	y1, m1, d1 := t.Start.In(loc).Date()
	y2, m2, d2 := now.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Occupies reports whether t takes part in machine occupancy on the day of now.
func (t Transaction) Occupies(now time.Time, loc *time.Location) bool {
	return !t.Canceled && !t.Services.Empty() && t.SameDay(now, loc)
}

// TransactionProgress is the minute-level "still running / finished N
// minutes ago" summary of one transaction.
type TransactionProgress struct {
	Code               string        `json:"code"`
	Services           ServiceCounts `json:"services"`
	Start              time.Time     `json:"start"`
	Finish             time.Time     `json:"finish"`
	SameDay            bool          `json:"same_day"`
	Canceled           bool          `json:"canceled"`
	Own                bool          `json:"own"`
	Running            bool          `json:"running"`
	MinutesRemaining   int           `json:"minutes_remaining"`
	MinutesSinceFinish int           `json:"minutes_since_finish"`
}

// Progress compares now to the transaction's sequential finish time. Partial
// minutes round up while running and down once finished.
func Progress(t Transaction, now time.Time, loc *time.Location) TransactionProgress {
	p := TransactionProgress{
		Code:     t.Code,
		Services: t.Services,
		Start:    t.Start,
		Finish:   t.Finish(),
		SameDay:  t.SameDay(now, loc),
		Canceled: t.Canceled,
		Own:      t.Own,
	}

	left := p.Finish.Sub(now)
	if left > 0 {
		if p.SameDay && !t.Canceled {
			p.Running = true
			p.MinutesRemaining = int(math.Ceil(left.Minutes()))
		}
		return p
	}
	p.MinutesSinceFinish = int(math.Floor(-left.Minutes()))
	return p
}
