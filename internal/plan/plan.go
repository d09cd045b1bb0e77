// Package plan computes the [start, end] date window for a sync run.
package plan

import (
	"errors"
	"fmt"
	"time"

	"github.com/lwei/csi800-data/internal/model"
)

// Mode selects how the start of the window is chosen.
type Mode string

const (
	// ModeFull starts at the fixed historical epoch.
	ModeFull Mode = "full"
	// ModeIncremental starts a small lookback window before today.
	ModeIncremental Mode = "incremental"
	// ModeBounded starts at a caller-supplied date.
	ModeBounded Mode = "bounded"
)

var (
	// ErrInvalidMode marks an unrecognized sync mode.
	ErrInvalidMode = errors.New("invalid sync mode")
	// ErrInvalidDate marks a malformed or out-of-range explicit start date.
	ErrInvalidDate = errors.New("invalid start date")
)

// Epoch predates the inception of the tracked index; a full sync from
// here captures every constituent's complete listed history.
var Epoch = time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)

// Accepted layouts for an explicit start date.
var startLayouts = []string{model.DateLayout, "20060102"}

// ParseMode validates a mode string from the CLI.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeIncremental, ModeBounded:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Planner builds SyncPlans. The zero value is not usable; construct
// with New so defaults are applied.
type Planner struct {
	Epoch    time.Time
	Lookback int              // calendar days covered by incremental mode
	Now      func() time.Time // injectable clock
}

// New returns a Planner with the given incremental lookback.
func New(lookback int) *Planner {
	return &Planner{
		Epoch:    Epoch,
		Lookback: lookback,
		Now:      time.Now,
	}
}

// Plan computes the window for one run. explicitStart is only
// consulted in bounded mode. The end date is always today (UTC).
func (p *Planner) Plan(mode Mode, explicitStart string) (model.SyncPlan, error) {
	end := midnight(p.Now().UTC())

	var start time.Time
	switch mode {
	case ModeFull:
		start = p.Epoch
	case ModeIncremental:
		start = end.AddDate(0, 0, -p.Lookback)
	case ModeBounded:
		var err error
		start, err = parseStart(explicitStart)
		if err != nil {
			return model.SyncPlan{}, err
		}
		if start.After(end) {
			return model.SyncPlan{}, fmt.Errorf("%w: %s is after %s",
				ErrInvalidDate, start.Format(model.DateLayout), end.Format(model.DateLayout))
		}
	default:
		return model.SyncPlan{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	return model.SyncPlan{
		Mode:      string(mode),
		StartDate: start,
		EndDate:   end,
	}, nil
}

func parseStart(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: bounded mode requires a start date", ErrInvalidDate)
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return midnight(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
