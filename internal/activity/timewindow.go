// Package activity holds the normalization, deduplication, time-window and
// query pipeline over the unified activity stream.
package activity

import (
    "time"

    "github.com/navi-04/Issue-change-log/internal/domain"
)

// Window is an inclusive time range; a zero bound is open. The open window
// matches everything, including records whose timestamp never parsed.
type Window struct {
    From time.Time
    To   time.Time
}

func (w Window) IsOpen() bool { return w.From.IsZero() && w.To.IsZero() }

// Matches reports whether t falls inside the window. An unparseable
// timestamp (zero t) never matches a bounded window; it is excluded, not
// an error.
func (w Window) Matches(t time.Time) bool {
    if w.IsOpen() { return true }
    if t.IsZero() { return false }
    if !w.From.IsZero() && t.Before(w.From) { return false }
    if !w.To.IsZero() && t.After(w.To) { return false }
    return true
}

// ResolveSelector maps a relative selector to a cutoff window. Every named
// bucket uses cutoff semantics: age <= N, inclusive, so a larger window
// strictly contains a smaller one. 1_month and 30d are a flat 30 days;
// 6m and 1y subtract calendar months/years. Unknown selectors, "all" and
// the empty selector resolve to the open window.
func ResolveSelector(selector string, now time.Time) Window {
    switch selector {
    case "", "all":
        return Window{}
    case "just_now":
        return Window{From: now.Add(-time.Minute)}
    case "5_minutes":
        return Window{From: now.Add(-5 * time.Minute)}
    case "2_hours":
        return Window{From: now.Add(-2 * time.Hour)}
    case "3_days":
        return Window{From: now.Add(-3 * 24 * time.Hour)}
    case "1_week":
        return Window{From: now.Add(-7 * 24 * time.Hour)}
    case "1_month", "30d":
        return Window{From: now.Add(-30 * 24 * time.Hour)}
    case "24h":
        return Window{From: now.Add(-24 * time.Hour)}
    case "7d":
        return Window{From: now.Add(-7 * 24 * time.Hour)}
    case "6m":
        return Window{From: now.AddDate(0, -6, 0)}
    case "1y":
        return Window{From: now.AddDate(-1, 0, 0)}
    default:
        return Window{}
    }
}

// CustomWindow builds a window from explicit date bounds at whole-day
// granularity: from is normalized to 00:00:00.000 of its day, to to
// 23:59:59.999, so a record's time-of-day never disqualifies it. A missing
// or unparseable bound stays open.
func CustomWindow(fromStr, toStr string) Window {
    w := Window{}
    if t, ok := parseBound(fromStr); ok {
        w.From = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
    }
    if t, ok := parseBound(toStr); ok {
        w.To = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999000000, t.Location())
    }
    return w
}

func parseBound(s string) (time.Time, bool) {
    if s == "" { return time.Time{}, false }
    layouts := []string{"2006-01-02", time.RFC3339Nano, time.RFC3339, domain.ISOMillis}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil { return t.UTC(), true }
    }
    return time.Time{}, false
}
