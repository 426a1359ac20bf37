package domain

import "encoding/json"

// MarshalJSON keeps the discriminated-union wire shape: every record carries
// issueKey, type, author and the uniform timestamp, plus the type-specific
// primary date field (changelog uses "date", comment and attachment use
// "created") and the type's own columns.
func (a Activity) MarshalJSON() ([]byte, error) {
    m := map[string]any{
        "issueKey":  a.IssueKey,
        "type":      string(a.Type),
        "author":    a.Author,
        "timestamp": a.Timestamp,
    }
    switch a.Type {
    case ActivityChangelog:
        m["field"] = a.Field
        m["from"] = a.From
        m["to"] = a.To
        m["date"] = a.Timestamp
    case ActivityComment:
        m["content"] = a.Content
        m["id"] = a.ID
        m["created"] = a.Timestamp
        if a.Updated != nil {
            m["updated"] = *a.Updated
        } else {
            m["updated"] = nil
        }
    case ActivityAttachment:
        m["filename"] = a.Filename
        m["size"] = a.Size
        m["mimeType"] = a.MimeType
        m["id"] = a.ID
        m["content"] = a.ContentRef
        m["created"] = a.Timestamp
    }
    return json.Marshal(m)
}
