package activity

import (
    "fmt"
    "math"
    "sort"
    "strings"
    "time"

    "github.com/navi-04/Issue-change-log/internal/domain"
)

// QueryPage is one page of the filtered, sorted stream.
type QueryPage struct {
    Items      []domain.Activity `json:"pageItems"`
    TotalCount int               `json:"totalCount"`
    TotalPages int               `json:"totalPages"`
    Page       int               `json:"page"`
    PageSize   int               `json:"pageSize"`
}

// Apply runs the column and date filters, sorts by timestamp descending
// (the only supported order) and paginates. It is a pure derivation over an
// already-fetched snapshot; it never triggers a fetch.
func Apply(items []domain.Activity, f domain.FilterState, now time.Time) QueryPage {
    var window Window
    if f.Date == "custom" {
        window = CustomWindow(f.DateFrom, f.DateTo)
    } else {
        window = ResolveSelector(f.Date, now)
    }

    filtered := make([]domain.Activity, 0, len(items))
    for _, a := range items {
        if !matchAuthor(a, f.Author) { continue }
        if !matchField(a, f.Field) { continue }
        if !matchFrom(a, f.From) { continue }
        if !matchTo(a, f.To) { continue }
        if !window.Matches(a.At) { continue }
        filtered = append(filtered, a)
    }

    sort.SliceStable(filtered, func(i, j int) bool {
        return filtered[i].At.After(filtered[j].At)
    })

    pageSize := f.PageSize
    if pageSize <= 0 { pageSize = 10 }
    page := f.Page
    if page <= 0 { page = 1 }

    total := len(filtered)
    totalPages := 1
    if total > 0 { totalPages = (total + pageSize - 1) / pageSize }

    start := (page - 1) * pageSize
    end := start + pageSize
    if start > total { start = total }
    if end > total { end = total }

    return QueryPage{
        Items:      filtered[start:end],
        TotalCount: total,
        TotalPages: totalPages,
        Page:       page,
        PageSize:   pageSize,
    }
}

func containsFold(haystack, needle string) bool {
    return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matchAuthor(a domain.Activity, selected []string) bool {
    if len(selected) == 0 { return true }
    for _, s := range selected {
        if containsFold(a.Author, s) { return true }
    }
    return false
}

// matchField is type-aware: changelog records match on the changed field,
// comments match the literal "comment" label (parity with the shipped UI,
// not a body search), attachments match on the filename.
func matchField(a domain.Activity, selected []string) bool {
    if len(selected) == 0 { return true }
    for _, s := range selected {
        switch a.Type {
        case domain.ActivityChangelog:
            if containsFold(a.Field, s) { return true }
        case domain.ActivityComment:
            if containsFold("comment", s) { return true }
        case domain.ActivityAttachment:
            if containsFold(a.Filename, s) { return true }
        }
    }
    return false
}

// matchFrom only ever matches changelog records; the other types carry no
// "from" column, so any non-empty filter excludes them.
func matchFrom(a domain.Activity, filter string) bool {
    if filter == "" { return true }
    return containsFold(a.From, filter)
}

// matchTo is type-aware: changelog matches the new value, attachments match
// their rendered "{size_kb}KB" cell, comments match their content.
func matchTo(a domain.Activity, filter string) bool {
    if filter == "" { return true }
    switch a.Type {
    case domain.ActivityChangelog:
        return containsFold(a.To, filter)
    case domain.ActivityAttachment:
        return containsFold(sizeKB(a.Size), filter)
    case domain.ActivityComment:
        return containsFold(a.Content, filter)
    }
    return true
}

func sizeKB(size int64) string {
    return fmt.Sprintf("%dKB", int64(math.Round(float64(size)/1024)))
}
