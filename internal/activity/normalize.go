package activity

import (
    "fmt"
    "time"

    "github.com/navi-04/Issue-change-log/internal/domain"
)

const contentUnavailable = "Comment content unavailable"

// NormalizeChangelog expands raw changelog histories into one Activity per
// changed field. A history with zero items contributes nothing; every
// expanded record shares the history's author and timestamp. The window is
// the coarse pre-merge filter; the fine-grained filtering happens later in
// the query pipeline.
func NormalizeChangelog(issueKey string, histories []map[string]any, w Window) []domain.Activity {
    var out []domain.Activity
    for _, hv := range histories {
        if hv == nil { continue }
        at := parseTimeUTC(hv["created"])
        if !w.Matches(derefTime(at)) { continue }
        author := displayName(hv["author"])
        ts := isoTimestamp(at, hv["created"])
        items, _ := hv["items"].([]any)
        for _, it0 := range items {
            itm, _ := it0.(map[string]any)
            if itm == nil { continue }
            from := toStrAny(itm["fromString"])
            if from == "" { from = "-" }
            to := toStrAny(itm["toString"])
            if to == "" { to = "-" }
            out = append(out, domain.Activity{
                IssueKey:  issueKey,
                Type:      domain.ActivityChangelog,
                Author:    author,
                Timestamp: ts,
                At:        derefTime(at),
                Field:     toStrAny(itm["field"]),
                From:      from,
                To:        to,
            })
        }
    }
    return out
}

// NormalizeComments produces one Activity per raw comment inside the
// window. Body extraction is total: rich-text (ADF) bodies are walked for
// their plain text, plain-string bodies (API v2) pass through, and anything
// unexpected degrades to a placeholder instead of failing the batch.
func NormalizeComments(issueKey string, comments []map[string]any, w Window) []domain.Activity {
    var out []domain.Activity
    for _, cm := range comments {
        if cm == nil { continue }
        at := parseTimeUTC(cm["created"])
        if !w.Matches(derefTime(at)) { continue }
        var updated *string
        if up := parseTimeUTC(cm["updated"]); up != nil {
            s := up.Format(domain.ISOMillis)
            updated = &s
        }
        out = append(out, domain.Activity{
            IssueKey:  issueKey,
            Type:      domain.ActivityComment,
            Author:    displayName(cm["author"]),
            Timestamp: isoTimestamp(at, cm["created"]),
            At:        derefTime(at),
            Content:   commentContent(cm["body"]),
            Updated:   updated,
            ID:        toStrAny(cm["id"]),
        })
    }
    return out
}

// NormalizeAttachments produces one Activity per raw attachment inside the
// window. Missing size or mime type degrade to zero values.
func NormalizeAttachments(issueKey string, attachments []map[string]any, w Window) []domain.Activity {
    var out []domain.Activity
    for _, am := range attachments {
        if am == nil { continue }
        at := parseTimeUTC(am["created"])
        if !w.Matches(derefTime(at)) { continue }
        var size int64
        if v, ok := am["size"].(float64); ok { size = int64(v) }
        out = append(out, domain.Activity{
            IssueKey:   issueKey,
            Type:       domain.ActivityAttachment,
            Author:     displayName(am["author"]),
            Timestamp:  isoTimestamp(at, am["created"]),
            At:         derefTime(at),
            Filename:   toStrAny(am["filename"]),
            Size:       size,
            MimeType:   toStrAny(am["mimeType"]),
            ContentRef: toStrAny(am["content"]),
            ID:         toStrAny(am["id"]),
        })
    }
    return out
}

func commentContent(body any) string {
    switch b := body.(type) {
    case string:
        if b != "" { return b }
    case map[string]any:
        if txt := adfText(b); txt != "" { return txt }
    }
    return contentUnavailable
}

func displayName(author any) string {
    if a, ok := author.(map[string]any); ok {
        if n, ok := a["displayName"].(string); ok && n != "" { return n }
    }
    return "Unknown"
}

// isoTimestamp renders the uniform timestamp; when the raw value never
// parsed it is carried through verbatim so the record stays traceable.
func isoTimestamp(at *time.Time, raw any) string {
    if at != nil { return at.Format(domain.ISOMillis) }
    return toStrAny(raw)
}

func parseTimeUTC(v any) *time.Time {
    s, _ := v.(string)
    if s == "" { return nil }
    layouts := []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700", "2006-01-02T15:04:05-0700"}
    for _, l := range layouts {
        if t, err := time.Parse(l, s); err == nil {
            tt := t.UTC(); return &tt
        }
    }
    return nil
}

func toStrAny(v any) string {
    if v == nil { return "" }
    if s, ok := v.(string); ok { return s }
    return fmt.Sprintf("%v", v)
}

func derefTime(t *time.Time) time.Time { if t == nil { return time.Time{} }; return *t }
