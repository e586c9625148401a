// Package clock classifies the current market session and derives the
// cycle loop's polling interval from it.
package clock

import (
	"time"

	"github.com/lowfloat/catalystrun/internal/config"
)

// Session is a coarse U.S. equity market session.
type Session string

const (
	Premarket  Session = "PREMARKET"
	Regular    Session = "REGULAR"
	Afterhours Session = "AFTERHOURS"
	Closed     Session = "CLOSED"
)

// Clock exposes the current instant and session, and the cycle interval
// that session implies. It is a thin wrapper so tests can inject a fixed
// instant without faking system time.
type Clock struct {
	settings *config.Settings
	loc      *time.Location
	nowFn    func() time.Time
}

// New builds a Clock against U.S. Eastern time.
func New(settings *config.Settings) (*Clock, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, err
	}
	return &Clock{settings: settings, loc: loc, nowFn: time.Now}, nil
}

// Now returns the current instant in UTC.
func (c *Clock) Now() time.Time { return c.nowFn().UTC() }

// CurrentSession classifies c.Now() into a Session.
func (c *Clock) CurrentSession() Session {
	return c.SessionAt(c.nowFn())
}

// SessionAt classifies an arbitrary instant, for testability (P3-style
// determinism: same instant in, same session out).
func (c *Clock) SessionAt(instant time.Time) Session {
	et := instant.In(c.loc)

	if isWeekend(et) {
		return Closed
	}

	minutesSinceMidnight := et.Hour()*60 + et.Minute()

	const (
		preOpen   = 4 * 60
		regOpen   = 9*60 + 30
		regClose  = 16 * 60
		afterClose = 20 * 60
	)

	switch {
	case minutesSinceMidnight >= preOpen && minutesSinceMidnight < regOpen:
		return Premarket
	case minutesSinceMidnight >= regOpen && minutesSinceMidnight < regClose:
		return Regular
	case minutesSinceMidnight >= regClose && minutesSinceMidnight < afterClose:
		return Afterhours
	default:
		return Closed
	}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextCycleDelay returns the configured polling interval for a session.
func (c *Clock) NextCycleDelay(session Session) time.Duration {
	switch session {
	case Regular:
		return c.settings.CycleIntervalRegular
	case Premarket, Afterhours:
		return c.settings.CycleIntervalExtended
	default:
		return c.settings.CycleIntervalClosed
	}
}
