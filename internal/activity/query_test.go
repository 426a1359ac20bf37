package activity

import (
    "fmt"
    "testing"
    "time"

    "github.com/navi-04/Issue-change-log/internal/domain"
)

func changelogAt(at time.Time, field, from, to, author string) domain.Activity {
    return domain.Activity{
        Type: domain.ActivityChangelog, Author: author, Field: field, From: from, To: to,
        Timestamp: at.UTC().Format(domain.ISOMillis), At: at.UTC(),
    }
}

func TestApply_SortsDescending(t *testing.T) {
    base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
    items := []domain.Activity{
        changelogAt(base.Add(1*time.Hour), "status", "A", "B", "alice"),
        changelogAt(base.Add(3*time.Hour), "status", "B", "C", "bob"),
        changelogAt(base.Add(2*time.Hour), "status", "C", "D", "carol"),
    }
    page := Apply(items, domain.FilterState{}, base.Add(24*time.Hour))
    if page.TotalCount != 3 { t.Fatalf("expected 3, got %d", page.TotalCount) }
    for i := 1; i < len(page.Items); i++ {
        if page.Items[i].At.After(page.Items[i-1].At) { t.Fatalf("not sorted descending at %d", i) }
    }
}

func TestApply_PaginationCoversEveryRecordExactlyOnce(t *testing.T) {
    base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
    var items []domain.Activity
    for i := 0; i < 60; i++ {
        items = append(items, changelogAt(base.Add(time.Duration(i)*time.Minute), "status", "A", fmt.Sprintf("v%d", i), "alice"))
    }
    f := domain.FilterState{PageSize: 25}
    seen := map[string]bool{}
    var pages int
    for p := 1; ; p++ {
        f.Page = p
        page := Apply(items, f, base.Add(24*time.Hour))
        if p == 1 {
            pages = page.TotalPages
            if pages != 3 { t.Fatalf("60/25 should be 3 pages, got %d", pages) }
        }
        for _, a := range page.Items {
            if seen[a.Timestamp] { t.Fatalf("record %s appeared twice", a.Timestamp) }
            seen[a.Timestamp] = true
        }
        if p == pages {
            if len(page.Items) != 10 { t.Fatalf("last page should hold 10, got %d", len(page.Items)) }
            break
        }
        if len(page.Items) != 25 { t.Fatalf("full page should hold 25, got %d", len(page.Items)) }
    }
    if len(seen) != 60 { t.Fatalf("pages must cover all 60 records, got %d", len(seen)) }
}

func TestApply_EmptyResultStillOnePage(t *testing.T) {
    page := Apply(nil, domain.FilterState{Author: []string{"nobody"}}, time.Now())
    if page.TotalCount != 0 { t.Fatalf("expected empty") }
    if page.TotalPages != 1 { t.Fatalf("empty result reports one page, got %d", page.TotalPages) }
    if page.Items == nil || len(page.Items) != 0 { t.Fatalf("items must be an empty slice") }
}

func TestApply_PageBeyondEndIsEmpty(t *testing.T) {
    base := time.Now().UTC()
    items := []domain.Activity{changelogAt(base, "status", "A", "B", "alice")}
    page := Apply(items, domain.FilterState{Page: 5, PageSize: 10}, base)
    if len(page.Items) != 0 { t.Fatalf("page past the end must be empty") }
    if page.TotalCount != 1 { t.Fatalf("total still reflects the filtered set") }
}

func TestApply_FiltersAreANDed(t *testing.T) {
    base := time.Now().UTC()
    items := []domain.Activity{
        changelogAt(base, "status", "To Do", "Done", "alice"),
        changelogAt(base, "status", "To Do", "Done", "bob"),
        changelogAt(base, "priority", "Low", "High", "alice"),
    }
    f := domain.FilterState{Author: []string{"alice"}, Field: []string{"status"}}
    page := Apply(items, f, base)
    if page.TotalCount != 1 { t.Fatalf("expected exactly the alice/status record, got %d", page.TotalCount) }
}

func TestApply_FieldFilterIsTypeAware(t *testing.T) {
    base := time.Now().UTC()
    upd := "2025-05-01T00:00:00.000Z"
    items := []domain.Activity{
        changelogAt(base, "status", "A", "B", "alice"),
        {Type: domain.ActivityComment, Author: "bob", Content: "looks good", At: base, Timestamp: upd},
        {Type: domain.ActivityAttachment, Author: "carol", Filename: "status-report.pdf", Size: 2048, At: base, Timestamp: upd},
    }
    // "comment" selects comments by their type label, never by body
    page := Apply(items, domain.FilterState{Field: []string{"comment"}}, base)
    if page.TotalCount != 1 || page.Items[0].Type != domain.ActivityComment {
        t.Fatalf("field=comment must select exactly the comment, got %d", page.TotalCount)
    }
    // "status" matches the changelog field and the attachment filename
    page = Apply(items, domain.FilterState{Field: []string{"status"}}, base)
    if page.TotalCount != 2 { t.Fatalf("field=status should hit changelog+attachment, got %d", page.TotalCount) }
}

func TestApply_ToFilterMatchesAttachmentSizeCell(t *testing.T) {
    base := time.Now().UTC()
    items := []domain.Activity{
        {Type: domain.ActivityAttachment, Filename: "a.bin", Size: 2048, At: base, Timestamp: base.Format(domain.ISOMillis)},
    }
    page := Apply(items, domain.FilterState{To: "2KB"}, base)
    if page.TotalCount != 1 { t.Fatalf("to-filter must match the rendered 2KB cell") }
    page = Apply(items, domain.FilterState{To: "3KB"}, base)
    if page.TotalCount != 0 { t.Fatalf("3KB must not match a 2KB attachment") }
}

func TestApply_FromFilterExcludesNonChangelog(t *testing.T) {
    base := time.Now().UTC()
    items := []domain.Activity{
        changelogAt(base, "status", "To Do", "Done", "alice"),
        {Type: domain.ActivityComment, Content: "To Do list", At: base, Timestamp: base.Format(domain.ISOMillis)},
    }
    page := Apply(items, domain.FilterState{From: "to do"}, base)
    if page.TotalCount != 1 || page.Items[0].Type != domain.ActivityChangelog {
        t.Fatalf("from-filter only applies to changelog records, got %d", page.TotalCount)
    }
}

func TestApply_MatchingIsCaseInsensitiveSubstring(t *testing.T) {
    base := time.Now().UTC()
    items := []domain.Activity{changelogAt(base, "Status", "A", "B", "Alice Smith")}
    page := Apply(items, domain.FilterState{Author: []string{"alice"}, Field: []string{"STAT"}}, base)
    if page.TotalCount != 1 { t.Fatalf("substring match must ignore case") }
}

func TestApply_RelativeWindowExcludesOldRecords(t *testing.T) {
    now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
    items := []domain.Activity{
        changelogAt(now.Add(-time.Hour), "status", "A", "B", "alice"),
        changelogAt(now.Add(-10*24*time.Hour), "status", "B", "C", "alice"),
    }
    page := Apply(items, domain.FilterState{Date: "1_week"}, now)
    if page.TotalCount != 1 { t.Fatalf("1_week should keep only the recent record, got %d", page.TotalCount) }
}

func TestApply_CustomWindowUsesDayBounds(t *testing.T) {
    now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
    items := []domain.Activity{
        changelogAt(time.Date(2025, 5, 2, 23, 30, 0, 0, time.UTC), "status", "A", "B", "alice"),
        changelogAt(time.Date(2025, 5, 3, 0, 30, 0, 0, time.UTC), "status", "B", "C", "alice"),
    }
    f := domain.FilterState{Date: "custom", DateFrom: "2025-05-02", DateTo: "2025-05-02"}
    page := Apply(items, f, now)
    if page.TotalCount != 1 { t.Fatalf("custom range must span whole days, got %d", page.TotalCount) }
}
