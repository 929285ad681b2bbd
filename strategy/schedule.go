package strategy

import (
	"math/rand"
	"time"

	"github.com/akshayinamdar/LowVolatilityScalper/config"
)

// DailyCounters tracks per-day trade accounting. The counters reset together
// with the schedule at day rollover.
type DailyCounters struct {
	Day    time.Time // floor-to-midnight marker, UTC
	Trades int
}

// ScheduleState holds the check cadence. It is mutated only by the Scheduler
// and read by the cycle handler to gate whether a check runs.
type ScheduleState struct {
	NextCheck time.Time
	LastCheck time.Time
}

// Scheduler decides when entry checks are due and detects day rollover. All
// randomness flows through the injected source, so identical seeds reproduce
// identical schedules.
type Scheduler struct {
	cfg config.ScheduleConfig
	rng *rand.Rand

	counters DailyCounters
	state    ScheduleState
}

func NewScheduler(cfg config.ScheduleConfig, rng *rand.Rand) *Scheduler {
	return &Scheduler{cfg: cfg, rng: rng}
}

func floorDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsNewDay reports whether now falls on a later day than the stored marker.
// The first call of a session always reports true.
func (s *Scheduler) IsNewDay(now time.Time) bool {
	return !floorDay(now).Equal(s.counters.Day)
}

// ResetDay resets the daily counters and re-derives the schedule from now.
// Callers invoke it whenever IsNewDay reports true.
func (s *Scheduler) ResetDay(now time.Time) {
	s.counters = DailyCounters{Day: floorDay(now)}
	s.state = ScheduleState{NextCheck: s.nextFrom(now)}
}

// ScheduleNext records that a check ran at now and computes the next one.
func (s *Scheduler) ScheduleNext(now time.Time) time.Time {
	s.state.LastCheck = now
	s.state.NextCheck = s.nextFrom(now)
	return s.state.NextCheck
}

func (s *Scheduler) nextFrom(now time.Time) time.Time {
	if s.cfg.Randomized {
		span := s.cfg.MaxMinutes - s.cfg.MinMinutes
		minutes := s.cfg.MinMinutes
		if span > 0 {
			minutes += s.rng.Intn(span + 1)
		}
		return now.Add(time.Duration(minutes) * time.Minute)
	}
	return now.Add(time.Duration(60/s.cfg.ChecksPerHour) * time.Minute)
}

// IsDue reports whether an entry check should run at now.
func (s *Scheduler) IsDue(now time.Time) bool {
	return !now.Before(s.state.NextCheck)
}

func (s *Scheduler) State() ScheduleState     { return s.state }
func (s *Scheduler) Counters() DailyCounters  { return s.counters }
func (s *Scheduler) DailyTrades() int         { return s.counters.Trades }
func (s *Scheduler) RecordTrade()             { s.counters.Trades++ }
