/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "sync"
    "time"

    "github.com/navi-04/Issue-change-log/internal/activity"
    "github.com/navi-04/Issue-change-log/internal/config"
    "github.com/navi-04/Issue-change-log/internal/domain"
    "github.com/navi-04/Issue-change-log/internal/policy"
    "github.com/rs/zerolog"
)

type JiraClient interface {
    ProjectKeyForIssue(ctx context.Context, issueKey string) (string, error)
    IssueChangelog(ctx context.Context, issueKey string) ([]map[string]any, error)
    IssueComments(ctx context.Context, issueKey string) ([]map[string]any, error)
    IssueAttachments(ctx context.Context, issueKey string) ([]map[string]any, error)
    Project(ctx context.Context, projectKey string) (map[string]any, error)
    Projects(ctx context.Context) ([]map[string]any, error)
    HasProjectPermission(ctx context.Context, projectKey, permission string) (bool, error)
}

type LLM interface {
    SummarizeActivity(ctx context.Context, payload any) (string, error)
}

type Service struct {
    cfg  config.Config
    log  zerolog.Logger
    gate *policy.Gate
    jira JiraClient
    llm  LLM
}

func New(cfg config.Config, log zerolog.Logger, gate *policy.Gate, jira JiraClient, llm LLM) *Service {
    return &Service{cfg: cfg, log: log, gate: gate, jira: jira, llm: llm}
}

// FeedRequest is the aggregation entry point's payload. Filter accepts a
// plain string or a {value} object, as the UI sends both shapes.
type FeedRequest struct {
    IssueKeys []string `json:"issueKeys"`
    IssueKey  string   `json:"issueKey"`
    Filter    any      `json:"filter"`
    FromDate  string   `json:"fromDate"`
    ToDate    string   `json:"toDate"`
}

func (r FeedRequest) filterValue() string {
    switch v := r.Filter.(type) {
    case string:
        return v
    case map[string]any:
        if s, ok := v["value"].(string); ok { return s }
    }
    return "all"
}

// FeedResponse always keeps its full shape; on failure Error is set and the
// slices are empty (never nil), so callers need no special-case branching.
type FeedResponse struct {
    Error       string            `json:"error,omitempty"`
    Changelog   []domain.Activity `json:"changelog"`
    Comments    []domain.Activity `json:"comments"`
    Attachments []domain.Activity `json:"attachments"`
    Total       int               `json:"total"`
}

func errorResponse(msg string) FeedResponse {
    return FeedResponse{
        Error:       msg,
        Changelog:   []domain.Activity{},
        Comments:    []domain.Activity{},
        Attachments: []domain.Activity{},
        Total:       0,
    }
}

func (s *Service) resolveIssueKeys(req FeedRequest) []string {
    if len(req.IssueKeys) > 0 { return req.IssueKeys }
    if req.IssueKey != "" { return []string{req.IssueKey} }
    return []string{s.cfg.DefaultIssueKey}
}

// gateIssues validates project access for every issue before any data is
// fetched. The three rejections stay distinct: could not determine the
// project, project not allowlisted, project allowlisted but disabled.
func (s *Service) gateIssues(ctx context.Context, issueKeys []string) *FeedError {
    for _, issueKey := range issueKeys {
        projectKey, err := s.jira.ProjectKeyForIssue(ctx, issueKey)
        if err != nil || projectKey == "" {
            s.log.Warn().Err(err).Str("issue", issueKey).Msg("project resolution failed")
            return feedError(CodeProjectUnresolvable, msgProjectUnresolvable)
        }
        hasAccess, err := s.gate.CheckProjectAccess(ctx, projectKey)
        if err != nil {
            s.log.Error().Err(err).Str("project", projectKey).Msg("allowlist read failed")
            return feedError(CodeAccessDenied, msgAccessDenied)
        }
        if !hasAccess {
            return feedError(CodeAccessDenied, msgAccessDenied)
        }
        enabled, err := s.gate.IsProjectEnabled(ctx, projectKey)
        if err != nil {
            s.log.Error().Err(err).Str("project", projectKey).Msg("settings read failed")
            return feedError(CodeProjectDisabled, msgProjectDisabled)
        }
        if !enabled {
            return feedError(CodeProjectDisabled, msgProjectDisabled)
        }
    }
    return nil
}

// Aggregate is the main entry point: gate every issue's project, fetch the
// three record kinds per issue, normalize to the unified shape, dedupe
// across the whole batch, and return the grouped result. Upstream failures
// for one issue or one record kind degrade to an empty contribution;
// processing continues with the rest (best-effort, not all-or-nothing).
func (s *Service) Aggregate(ctx context.Context, req FeedRequest) FeedResponse {
    issueKeys := s.resolveIssueKeys(req)

    if ferr := s.gateIssues(ctx, issueKeys); ferr != nil {
        return errorResponse(ferr.Message)
    }

    var window activity.Window
    if req.FromDate != "" || req.ToDate != "" {
        window = activity.CustomWindow(req.FromDate, req.ToDate)
    } else {
        window = activity.ResolveSelector(req.filterValue(), time.Now().UTC())
    }

    allChangelog := []domain.Activity{}
    allComments := []domain.Activity{}
    allAttachments := []domain.Activity{}

    // one issue fully resolved before the next; within an issue, comments
    // and attachments are independent and fetched concurrently
    for _, issueKey := range issueKeys {
        histories, err := s.jira.IssueChangelog(ctx, issueKey)
        if err != nil {
            s.log.Warn().Err(err).Str("issue", issueKey).Msg("changelog fetch failed; skipping")
            histories = nil
        }

        var comments, attachments []map[string]any
        var commentsErr, attachmentsErr error
        var wg sync.WaitGroup
        wg.Add(2)
        go func() { defer wg.Done(); comments, commentsErr = s.jira.IssueComments(ctx, issueKey) }()
        go func() { defer wg.Done(); attachments, attachmentsErr = s.jira.IssueAttachments(ctx, issueKey) }()
        wg.Wait()
        if commentsErr != nil {
            s.log.Warn().Err(commentsErr).Str("issue", issueKey).Msg("comments fetch failed; skipping")
            comments = nil
        }
        if attachmentsErr != nil {
            s.log.Warn().Err(attachmentsErr).Str("issue", issueKey).Msg("attachments fetch failed; skipping")
            attachments = nil
        }

        allChangelog = append(allChangelog, activity.NormalizeChangelog(issueKey, histories, window)...)
        allComments = append(allComments, activity.NormalizeComments(issueKey, comments, window)...)
        allAttachments = append(allAttachments, activity.NormalizeAttachments(issueKey, attachments, window)...)
    }

    // dedupe over the concatenated stream, then regroup by type
    union := make([]domain.Activity, 0, len(allChangelog)+len(allComments)+len(allAttachments))
    union = append(union, allChangelog...)
    union = append(union, allComments...)
    union = append(union, allAttachments...)
    union = activity.Dedupe(union)

    resp := FeedResponse{
        Changelog:   []domain.Activity{},
        Comments:    []domain.Activity{},
        Attachments: []domain.Activity{},
    }
    for _, a := range union {
        switch a.Type {
        case domain.ActivityChangelog:
            resp.Changelog = append(resp.Changelog, a)
        case domain.ActivityComment:
            resp.Comments = append(resp.Comments, a)
        case domain.ActivityAttachment:
            resp.Attachments = append(resp.Attachments, a)
        }
    }
    resp.Total = len(resp.Changelog) + len(resp.Comments) + len(resp.Attachments)
    return resp
}

// QueryResponse wraps a query-pipeline page, keeping the envelope's error
// discipline.
type QueryResponse struct {
    Error string `json:"error,omitempty"`
    activity.QueryPage
}

// Query aggregates and then runs the query pipeline server-side, so any
// caller gets filtering identical to the UI's.
func (s *Service) Query(ctx context.Context, req FeedRequest, filters domain.FilterState) QueryResponse {
    feed := s.Aggregate(ctx, req)
    if feed.Error != "" {
        return QueryResponse{Error: feed.Error, QueryPage: activity.QueryPage{Items: []domain.Activity{}, TotalPages: 1, Page: 1}}
    }
    union := make([]domain.Activity, 0, feed.Total)
    union = append(union, feed.Changelog...)
    union = append(union, feed.Comments...)
    union = append(union, feed.Attachments...)
    if filters.PageSize <= 0 { filters.PageSize = s.cfg.PageSize }
    return QueryResponse{QueryPage: activity.Apply(union, filters, time.Now().UTC())}
}

// AccessInfo reports the caller's current access state, used by the UI for
// diagnostics. HasAccess is nil when no issue context was supplied.
type AccessInfo struct {
    AllowedProjects []string `json:"allowedProjects"`
    CurrentProject  *string  `json:"currentProject"`
    HasAccess       *bool    `json:"hasAccess"`
}

func (s *Service) AccessInfo(ctx context.Context, issueKey string) (AccessInfo, error) {
    allowed, err := s.gate.AllowedProjects(ctx)
    if err != nil { return AccessInfo{}, err }
    if allowed == nil { allowed = []string{} }
    info := AccessInfo{AllowedProjects: allowed}
    if issueKey == "" { return info, nil }
    projectKey, err := s.jira.ProjectKeyForIssue(ctx, issueKey)
    if err != nil || projectKey == "" { return info, nil }
    info.CurrentProject = &projectKey
    has := false
    for _, p := range allowed {
        if p == projectKey { has = true; break }
    }
    info.HasAccess = &has
    return info, nil
}

// ProjectSettingsView is the project settings page's state: project data,
// whether the site admin has authorized the project, the toggle state, and
// whether the caller may flip it.
type ProjectSettingsView struct {
    Success        bool                `json:"success"`
    Message        string              `json:"message,omitempty"`
    Project        *domain.ProjectInfo `json:"project,omitempty"`
    HasPermission  bool                `json:"hasPermission"`
    IsEnabled      bool                `json:"isEnabled"`
    IsProjectAdmin bool                `json:"isProjectAdmin"`
}

func (s *Service) ProjectSettings(ctx context.Context, projectKey string) ProjectSettingsView {
    if projectKey == "" {
        return ProjectSettingsView{Success: false, Message: "No project context available - please ensure you are accessing this from a project settings page"}
    }
    info := domain.ProjectInfo{Key: projectKey}
    if pm, err := s.jira.Project(ctx, projectKey); err == nil {
        if v, ok := pm["key"].(string); ok && v != "" { info.Key = v }
        if v, ok := pm["name"].(string); ok { info.Name = v }
        if v, ok := pm["projectTypeKey"].(string); ok { info.ProjectTypeKey = v }
    }

    allowed, err := s.gate.AllowedProjects(ctx)
    if err != nil {
        return ProjectSettingsView{Success: false, Message: err.Error()}
    }
    hasPermission := false
    for _, p := range allowed {
        if p == projectKey { hasPermission = true; break }
    }
    if !hasPermission {
        return ProjectSettingsView{Success: true, Project: &info, HasPermission: false, IsEnabled: false}
    }

    isAdmin, err := s.gate.IsProjectAdmin(ctx, projectKey)
    if err != nil { isAdmin = false }
    settings, err := s.gate.ProjectSettings(ctx, projectKey)
    if err != nil {
        return ProjectSettingsView{Success: false, Message: err.Error()}
    }
    return ProjectSettingsView{
        Success:        true,
        Project:        &info,
        HasPermission:  true,
        IsEnabled:      settings.IsEnabled(),
        IsProjectAdmin: isAdmin,
    }
}

// RefreshProjectMetadata re-runs the listing backfill so renamed projects
// converge without an admin opening the listing page. Used by the cron job.
func (s *Service) RefreshProjectMetadata(ctx context.Context) error {
    _, err := s.gate.ListAllowedProjects(ctx)
    return err
}

func (s *Service) Gate() *policy.Gate { return s.gate }
