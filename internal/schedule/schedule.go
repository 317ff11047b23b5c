// Package schedule decides whether "now" falls into the work window during which
// clocking in is permitted.
package schedule

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/adhocore/gronx"
	"github.com/goodsign/monday"
	"github.com/jakopako/autoclock/internal/config"
	"github.com/olekukonko/tablewriter"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// Window is a weekday and hour range in a fixed time zone. Days and Hours
// are cron fields, e.g. "1-5" (Monday to Friday) and "8-12" (8:00 to 12:59).
type Window struct {
	Location *time.Location
	Days     string
	Hours    string
	Language monday.Locale
}

// Status is the outcome of checking an instant against a Window.
type Status struct {
	Time        time.Time
	Day         string
	Hour        int
	IsWeekday   bool
	IsWorkHours bool
}

// NewWindow builds a window from the schedule configuration. An unknown time
// zone or an invalid cron field results in an error.
func NewWindow(sc config.Schedule) (*Window, error) {
	loc, err := time.LoadLocation(sc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", sc.Timezone, err)
	}
	w := &Window{
		Location: loc,
		Days:     sc.Days,
		Hours:    sc.Hours,
		Language: monday.Locale(sc.Language),
	}
	if w.Language == "" {
		w.Language = monday.LocaleEnUS
	}
	if !slices.Contains(monday.ListLocales(), w.Language) {
		return nil, fmt.Errorf("unsupported language %q", sc.Language)
	}
	for _, expr := range []string{w.daysExpr(), w.hoursExpr()} {
		if !gronx.IsValid(expr) {
			return nil, fmt.Errorf("invalid work window expression %q", expr)
		}
	}
	return w, nil
}

func (w *Window) daysExpr() string {
	return fmt.Sprintf("* * * * %s", w.Days)
}

func (w *Window) hoursExpr() string {
	return fmt.Sprintf("* %s * * *", w.Hours)
}

func (w *Window) expr() string {
	return fmt.Sprintf("* %s * * %s", w.Hours, w.Days)
}

// Check resolves now in the window's time zone and reports whether it lies
// within the work window.
func (w *Window) Check(now time.Time) Status {
	local := now.In(w.Location)
	// IsDue also matches the seconds, which are always 0 for five fields
	minute := local.Truncate(time.Minute)
	gron := gronx.New()
	// the expressions are validated in NewWindow
	isWeekday, _ := gron.IsDue(w.daysExpr(), minute)
	isWorkHours, _ := gron.IsDue(w.hoursExpr(), minute)
	return Status{
		Time:        local,
		Day:         monday.Format(local, "Monday", w.Language),
		Hour:        local.Hour(),
		IsWeekday:   isWeekday,
		IsWorkHours: isWorkHours,
	}
}

// Next returns the next instant after now at which the window is open.
func (w *Window) Next(now time.Time) (time.Time, error) {
	return gronx.NextTickAfter(w.expr(), now.In(w.Location), false)
}

// Open reports whether the checked instant is inside the work window.
func (s Status) Open() bool {
	return s.IsWeekday && s.IsWorkHours
}

// Report writes a human readable summary of the status to w.
func (s Status) Report(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.Header("Time Check", "Status")
	rows := [][]string{
		{"Current Time", s.Time.Format(timeLayout)},
		{"Day", s.Day},
		{"Is Weekday", strconv.FormatBool(s.IsWeekday)},
		{"Is Work Hours", strconv.FormatBool(s.IsWorkHours)},
	}
	for _, r := range rows {
		if err := table.Append(r); err != nil {
			return err
		}
	}
	return table.Render()
}
