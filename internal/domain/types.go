package domain

import "time"

// ISOMillis is the uniform timestamp layout of the wire format, matching
// ECMAScript's toISOString (millisecond precision, Z for UTC).
const ISOMillis = "2006-01-02T15:04:05.000Z07:00"

type ActivityType string

const (
    ActivityChangelog  ActivityType = "changelog"
    ActivityComment    ActivityType = "comment"
    ActivityAttachment ActivityType = "attachment"
)

// Activity is one normalized unit of issue history: a single changelog field
// change, a comment, or an attachment. Only the fields belonging to the
// record's Type are meaningful; MarshalJSON emits the per-type wire shape.
// Records are immutable once produced by the normalizer.
type Activity struct {
    IssueKey  string
    Type      ActivityType
    Author    string
    Timestamp string    // uniform ISO-8601 (millisecond precision, UTC)
    At        time.Time // parsed Timestamp; zero when unparseable

    // changelog
    Field string
    From  string
    To    string

    // comment
    Content string
    Updated *string

    // attachment
    Filename   string
    Size       int64
    MimeType   string
    ContentRef string

    // comment and attachment
    ID string
}

// ProjectMeta is the denormalized cache entry kept per allowlisted project,
// lazily backfilled from Jira on the admin listing path.
type ProjectMeta struct {
    Key       string `json:"key"`
    Name      string `json:"name"`
    ID        string `json:"id"`
    DateAdded string `json:"dateAdded"`
}

// ProjectSettings is the per-project feature toggle. A missing entry, or an
// entry without the enabled field, means the feature is on.
type ProjectSettings struct {
    Enabled     *bool  `json:"enabled,omitempty"`
    LastUpdated string `json:"lastUpdated,omitempty"`
}

func (s ProjectSettings) IsEnabled() bool {
    return s.Enabled == nil || *s.Enabled
}

// ProjectInfo is the shape returned for Jira project listings.
type ProjectInfo struct {
    Key            string `json:"key"`
    Name           string `json:"name"`
    ID             string `json:"id"`
    ProjectTypeKey string `json:"projectTypeKey,omitempty"`
}

// FilterState is the caller-scoped filter set for the query pipeline. It is
// never persisted; callers send the whole state with every query.
type FilterState struct {
    Author   []string `json:"author"`
    Field    []string `json:"field"`
    From     string   `json:"from"`
    To       string   `json:"to"`
    Date     string   `json:"date"`     // relative selector or "custom"
    DateFrom string   `json:"dateFrom"` // custom range, whole-day granularity
    DateTo   string   `json:"dateTo"`
    Page     int      `json:"page"`
    PageSize int      `json:"pageSize"`
}

// ResetPage returns to the first page. Callers apply this whenever any
// filter dimension changes so a shrunken result set cannot strand them
// past the last page.
func (f *FilterState) ResetPage() { f.Page = 1 }
