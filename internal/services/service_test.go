package services

import (
    "context"
    "errors"
    "strings"
    "testing"

    "github.com/navi-04/Issue-change-log/internal/config"
    "github.com/navi-04/Issue-change-log/internal/domain"
    "github.com/navi-04/Issue-change-log/internal/policy"
    "github.com/rs/zerolog"
)

type fakeJira struct {
    projectByIssue map[string]string
    projectErr     error

    changelog   map[string][]map[string]any
    comments    map[string][]map[string]any
    attachments map[string][]map[string]any

    changelogErr   map[string]error
    commentsErr    map[string]error
    attachmentsErr map[string]error

    admin map[string]bool
}

func (f *fakeJira) ProjectKeyForIssue(ctx context.Context, issueKey string) (string, error) {
    if f.projectErr != nil { return "", f.projectErr }
    return f.projectByIssue[issueKey], nil
}

func (f *fakeJira) IssueChangelog(ctx context.Context, issueKey string) ([]map[string]any, error) {
    if err := f.changelogErr[issueKey]; err != nil { return nil, err }
    return f.changelog[issueKey], nil
}

func (f *fakeJira) IssueComments(ctx context.Context, issueKey string) ([]map[string]any, error) {
    if err := f.commentsErr[issueKey]; err != nil { return nil, err }
    return f.comments[issueKey], nil
}

func (f *fakeJira) IssueAttachments(ctx context.Context, issueKey string) ([]map[string]any, error) {
    if err := f.attachmentsErr[issueKey]; err != nil { return nil, err }
    return f.attachments[issueKey], nil
}

func (f *fakeJira) Project(ctx context.Context, projectKey string) (map[string]any, error) {
    return map[string]any{"key": projectKey, "name": projectKey + " Name", "id": "1"}, nil
}

func (f *fakeJira) Projects(ctx context.Context) ([]map[string]any, error) { return nil, nil }

func (f *fakeJira) HasProjectPermission(ctx context.Context, projectKey, permission string) (bool, error) {
    return f.admin[projectKey], nil
}

func testService(t *testing.T, jc *fakeJira) (*Service, *policy.Gate) {
    t.Helper()
    gate := policy.NewGate(policy.NewMemoryStore(), jc, zerolog.Nop())
    cfg := config.Config{DefaultIssueKey: "KC-24", PageSize: 10}
    return New(cfg, zerolog.Nop(), gate, jc, nil), gate
}

func history(created, field, from, to string) map[string]any {
    return map[string]any{
        "created": created,
        "author":  map[string]any{"displayName": "Alice"},
        "items":   []any{map[string]any{"field": field, "fromString": from, "toString": to}},
    }
}

func TestAggregate_GroupsByTypeAndCounts(t *testing.T) {
    jc := &fakeJira{
        projectByIssue: map[string]string{"KC-1": "KC"},
        changelog: map[string][]map[string]any{"KC-1": {
            history("2025-04-01T10:00:00.000+0000", "status", "To Do", "Done"),
        }},
        comments: map[string][]map[string]any{"KC-1": {
            {"id": "1", "created": "2025-04-01T11:00:00.000+0000", "body": "nice"},
        }},
        attachments: map[string][]map[string]any{"KC-1": {
            {"id": "2", "created": "2025-04-01T12:00:00.000+0000", "filename": "a.png", "size": float64(100)},
        }},
    }
    svc, _ := testService(t, jc)
    resp := svc.Aggregate(context.Background(), FeedRequest{IssueKey: "KC-1"})
    if resp.Error != "" { t.Fatalf("unexpected error: %s", resp.Error) }
    if len(resp.Changelog) != 1 || len(resp.Comments) != 1 || len(resp.Attachments) != 1 {
        t.Fatalf("grouping wrong: %d/%d/%d", len(resp.Changelog), len(resp.Comments), len(resp.Attachments))
    }
    if resp.Total != 3 { t.Fatalf("total must equal the sum of groups, got %d", resp.Total) }
}

func TestAggregate_DefaultsIssueKeyWhenNoneGiven(t *testing.T) {
    jc := &fakeJira{projectByIssue: map[string]string{"KC-24": "KC"}}
    svc, _ := testService(t, jc)
    resp := svc.Aggregate(context.Background(), FeedRequest{})
    if resp.Error != "" { t.Fatalf("default issue key should have been used: %s", resp.Error) }
}

func TestAggregate_ProjectUnresolvable(t *testing.T) {
    jc := &fakeJira{projectErr: errors.New("502")}
    svc, _ := testService(t, jc)
    resp := svc.Aggregate(context.Background(), FeedRequest{IssueKey: "KC-1"})
    if !strings.Contains(resp.Error, "Unable to determine the project") {
        t.Fatalf("wrong error: %q", resp.Error)
    }
    if resp.Changelog == nil || resp.Comments == nil || resp.Attachments == nil {
        t.Fatalf("error responses keep the full envelope shape")
    }
    if resp.Total != 0 { t.Fatalf("error response total must be 0") }
}

func TestAggregate_AccessDeniedVsDisabledAreDistinct(t *testing.T) {
    jc := &fakeJira{
        projectByIssue: map[string]string{"A-1": "A", "B-1": "B"},
        admin:          map[string]bool{"A": true, "B": true},
    }
    svc, gate := testService(t, jc)
    ctx := context.Background()
    if _, err := gate.AddAllowedProject(ctx, "A"); err != nil { t.Fatalf("add: %v", err) }
    if err := gate.ToggleProject(ctx, "A", false); err != nil { t.Fatalf("toggle: %v", err) }

    disabled := svc.Aggregate(ctx, FeedRequest{IssueKey: "A-1"})
    if !strings.Contains(disabled.Error, "has been disabled for this project") {
        t.Fatalf("allowlisted-but-disabled must report the disabled message, got %q", disabled.Error)
    }

    denied := svc.Aggregate(ctx, FeedRequest{IssueKey: "B-1"})
    if !strings.Contains(denied.Error, "not authorized to use") {
        t.Fatalf("non-allowlisted must report the authorization message, got %q", denied.Error)
    }
    if denied.Error == disabled.Error { t.Fatalf("the two rejections must never collapse") }
}

func TestAggregate_GatePrecedesFetch(t *testing.T) {
    jc := &fakeJira{
        projectByIssue: map[string]string{"B-1": "B", "A-1": "A"},
        changelogErr:   map[string]error{"B-1": errors.New("must not be called")},
        admin:          map[string]bool{"A": true},
    }
    svc, gate := testService(t, jc)
    ctx := context.Background()
    if _, err := gate.AddAllowedProject(ctx, "A"); err != nil { t.Fatalf("add: %v", err) }
    resp := svc.Aggregate(ctx, FeedRequest{IssueKeys: []string{"B-1"}})
    if resp.Error == "" || resp.Total != 0 {
        t.Fatalf("denied request must return no records: %+v", resp)
    }
}

func TestAggregate_PartialUpstreamFailureDegrades(t *testing.T) {
    jc := &fakeJira{
        projectByIssue: map[string]string{"KC-1": "KC"},
        changelogErr:   map[string]error{"KC-1": errors.New("boom")},
        comments: map[string][]map[string]any{"KC-1": {
            {"id": "1", "created": "2025-04-01T11:00:00.000+0000", "body": "still here"},
        }},
    }
    svc, _ := testService(t, jc)
    resp := svc.Aggregate(context.Background(), FeedRequest{IssueKey: "KC-1"})
    if resp.Error != "" { t.Fatalf("one failed kind must not fail the request: %s", resp.Error) }
    if len(resp.Changelog) != 0 { t.Fatalf("failed kind contributes nothing") }
    if len(resp.Comments) != 1 { t.Fatalf("healthy kind must survive") }
}

func TestAggregate_DedupAcrossDuplicateIssueKeys(t *testing.T) {
    jc := &fakeJira{
        projectByIssue: map[string]string{"KC-1": "KC"},
        changelog: map[string][]map[string]any{"KC-1": {
            history("2025-04-01T10:00:00.000+0000", "status", "To Do", "Done"),
        }},
    }
    svc, _ := testService(t, jc)
    resp := svc.Aggregate(context.Background(), FeedRequest{IssueKeys: []string{"KC-1", "KC-1"}})
    if len(resp.Changelog) != 1 { t.Fatalf("double-fetched issue must dedupe, got %d", len(resp.Changelog)) }
}

func TestAggregate_RelativeFilterAppliedAtFetch(t *testing.T) {
    jc := &fakeJira{
        projectByIssue: map[string]string{"KC-1": "KC"},
        changelog: map[string][]map[string]any{"KC-1": {
            history("2020-01-01T10:00:00.000+0000", "status", "A", "B"),
        }},
    }
    svc, _ := testService(t, jc)
    resp := svc.Aggregate(context.Background(), FeedRequest{IssueKey: "KC-1", Filter: "1_week"})
    if len(resp.Changelog) != 0 { t.Fatalf("ancient record must fall outside 1_week") }
    // the {value} object shape is accepted too
    resp = svc.Aggregate(context.Background(), FeedRequest{IssueKey: "KC-1", Filter: map[string]any{"value": "all"}})
    if len(resp.Changelog) != 1 { t.Fatalf("all-filter must keep the record") }
}

func TestQuery_ServerSidePipeline(t *testing.T) {
    jc := &fakeJira{
        projectByIssue: map[string]string{"KC-1": "KC"},
        changelog: map[string][]map[string]any{"KC-1": {
            history("2025-04-01T10:00:00.000+0000", "status", "To Do", "Done"),
            history("2025-04-01T11:00:00.000+0000", "priority", "Low", "High"),
        }},
    }
    svc, _ := testService(t, jc)
    resp := svc.Query(context.Background(), FeedRequest{IssueKey: "KC-1"}, domain.FilterState{Field: []string{"status"}})
    if resp.Error != "" { t.Fatalf("unexpected error: %s", resp.Error) }
    if resp.TotalCount != 1 || resp.Items[0].Field != "status" {
        t.Fatalf("filtering wrong: %+v", resp.QueryPage)
    }
    if resp.PageSize != 10 { t.Fatalf("page size must default from config, got %d", resp.PageSize) }
}

func TestQuery_ErrorKeepsEnvelope(t *testing.T) {
    jc := &fakeJira{projectErr: errors.New("down")}
    svc, _ := testService(t, jc)
    resp := svc.Query(context.Background(), FeedRequest{IssueKey: "KC-1"}, domain.FilterState{})
    if resp.Error == "" { t.Fatalf("expected error") }
    if resp.Items == nil || resp.TotalPages != 1 { t.Fatalf("error page keeps shape: %+v", resp.QueryPage) }
}

func TestAccessInfo_WithAndWithoutIssueContext(t *testing.T) {
    jc := &fakeJira{projectByIssue: map[string]string{"KC-1": "KC"}, admin: map[string]bool{"KC": true}}
    svc, gate := testService(t, jc)
    ctx := context.Background()

    info, err := svc.AccessInfo(ctx, "")
    if err != nil { t.Fatalf("access info: %v", err) }
    if info.AllowedProjects == nil { t.Fatalf("allowed projects must be a slice") }
    if info.CurrentProject != nil || info.HasAccess != nil {
        t.Fatalf("no issue context means no project verdict")
    }

    if _, err := gate.AddAllowedProject(ctx, "KC"); err != nil { t.Fatalf("add: %v", err) }
    info, err = svc.AccessInfo(ctx, "KC-1")
    if err != nil { t.Fatalf("access info: %v", err) }
    if info.CurrentProject == nil || *info.CurrentProject != "KC" { t.Fatalf("project not resolved") }
    if info.HasAccess == nil || !*info.HasAccess { t.Fatalf("allowlisted project must have access") }
}

func TestProjectSettings_RequiresProjectContext(t *testing.T) {
    svc, _ := testService(t, &fakeJira{})
    view := svc.ProjectSettings(context.Background(), "")
    if view.Success { t.Fatalf("missing project key must fail") }
    if !strings.Contains(view.Message, "No project context available") {
        t.Fatalf("wrong message: %q", view.Message)
    }
}

func TestProjectSettings_NonAllowlistedHasNoPermission(t *testing.T) {
    jc := &fakeJira{admin: map[string]bool{"KC": true}}
    svc, _ := testService(t, jc)
    view := svc.ProjectSettings(context.Background(), "KC")
    if !view.Success { t.Fatalf("lookup itself succeeds: %q", view.Message) }
    if view.HasPermission { t.Fatalf("non-allowlisted project must report hasPermission=false") }
}

func TestProjectSettings_AllowlistedReportsToggleAndAdmin(t *testing.T) {
    jc := &fakeJira{admin: map[string]bool{"KC": true}}
    svc, gate := testService(t, jc)
    ctx := context.Background()
    if _, err := gate.AddAllowedProject(ctx, "KC"); err != nil { t.Fatalf("add: %v", err) }
    view := svc.ProjectSettings(ctx, "KC")
    if !view.Success || !view.HasPermission { t.Fatalf("allowlisted project: %+v", view) }
    if !view.IsEnabled || !view.IsProjectAdmin { t.Fatalf("fresh project is enabled, caller is admin: %+v", view) }
    if view.Project == nil || view.Project.Name != "KC Name" { t.Fatalf("project metadata missing: %+v", view.Project) }
}

func TestSummarize_DisabledWithoutModel(t *testing.T) {
    svc, _ := testService(t, &fakeJira{projectByIssue: map[string]string{"KC-1": "KC"}})
    resp := svc.Summarize(context.Background(), FeedRequest{IssueKey: "KC-1"}, domain.FilterState{})
    if resp.Error != ErrSummarizerDisabled.Error() { t.Fatalf("expected disabled error, got %q", resp.Error) }
}

type fakeLLM struct {
    summary string
    err     error
    records int
}

func (f *fakeLLM) SummarizeActivity(ctx context.Context, payload any) (string, error) {
    if items, ok := payload.([]domain.Activity); ok { f.records = len(items) }
    return f.summary, f.err
}

func TestSummarize_GatesBeforeModel(t *testing.T) {
    jc := &fakeJira{projectErr: errors.New("down")}
    gate := policy.NewGate(policy.NewMemoryStore(), jc, zerolog.Nop())
    llm := &fakeLLM{summary: "should not run"}
    svc := New(config.Config{DefaultIssueKey: "KC-24", PageSize: 10}, zerolog.Nop(), gate, jc, llm)
    resp := svc.Summarize(context.Background(), FeedRequest{IssueKey: "KC-1"}, domain.FilterState{})
    if resp.Summary != "" { t.Fatalf("gated request must not reach the model") }
    if llm.records != 0 { t.Fatalf("model must never see denied records") }
}

func TestSummarize_ReturnsDigest(t *testing.T) {
    jc := &fakeJira{
        projectByIssue: map[string]string{"KC-1": "KC"},
        changelog: map[string][]map[string]any{"KC-1": {
            history("2025-04-01T10:00:00.000+0000", "status", "To Do", "Done"),
        }},
    }
    gate := policy.NewGate(policy.NewMemoryStore(), jc, zerolog.Nop())
    llm := &fakeLLM{summary: "one status change"}
    svc := New(config.Config{DefaultIssueKey: "KC-24", PageSize: 10}, zerolog.Nop(), gate, jc, llm)
    resp := svc.Summarize(context.Background(), FeedRequest{IssueKey: "KC-1"}, domain.FilterState{})
    if resp.Error != "" { t.Fatalf("unexpected error: %s", resp.Error) }
    if resp.Summary != "one status change" || resp.Records != 1 {
        t.Fatalf("digest wrong: %+v", resp)
    }
}
