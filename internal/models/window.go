package models

import (
	"fmt"
	"time"
)

// Window is a named time range selector for the readings graph.
type Window string

const (
	Window5Min  Window = "5min"
	Window15Min Window = "15min"
	Window30Min Window = "30min"
	Window1Hr   Window = "1hr"
	Window12Hr  Window = "12hr"
	Window24Hr  Window = "24hr"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// windowMinutes maps each selector to its fixed minute count.
var windowMinutes = map[Window]int{
	Window5Min:  5,
	Window15Min: 15,
	Window30Min: 30,
	Window1Hr:   60,
	Window12Hr:  720,
	Window24Hr:  1440,
	WindowWeek:  10080,
	WindowMonth: 43200,
}

// ParseWindow validates a window name from a query parameter. The empty
// string defaults to the 24hr window.
func ParseWindow(s string) (Window, error) {
	if s == "" {
		return Window24Hr, nil
	}
	w := Window(s)
	if _, ok := windowMinutes[w]; !ok {
		return "", NewValidationError("window", fmt.Sprintf("unknown window %q", s))
	}
	return w, nil
}

// Duration returns the window's length.
func (w Window) Duration() time.Duration {
	return time.Duration(windowMinutes[w]) * time.Minute
}
