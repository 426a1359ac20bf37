/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "errors"
    "net/http"

    "github.com/gin-gonic/gin"
    "github.com/navi-04/Issue-change-log/internal/config"
    "github.com/navi-04/Issue-change-log/internal/domain"
    "github.com/navi-04/Issue-change-log/internal/policy"
    "github.com/navi-04/Issue-change-log/internal/services"
    "github.com/rs/zerolog"
)

type service interface {
    Aggregate(ctx context.Context, req services.FeedRequest) services.FeedResponse
    Query(ctx context.Context, req services.FeedRequest, filters domain.FilterState) services.QueryResponse
    Summarize(ctx context.Context, req services.FeedRequest, filters domain.FilterState) services.SummaryResponse
    AccessInfo(ctx context.Context, issueKey string) (services.AccessInfo, error)
    ProjectSettings(ctx context.Context, projectKey string) services.ProjectSettingsView
    Gate() *policy.Gate
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Feed returns the aggregated, deduplicated activity for the requested
// issues. Failures come back in the same envelope with error set, so the
// status is 200 either way.
func (h *Handlers) Feed(c *gin.Context) {
    var req services.FeedRequest
    // an empty or malformed body falls back to the contextual/default issue key
    if err := c.ShouldBindJSON(&req); err != nil {
        req = services.FeedRequest{}
    }
    c.JSON(http.StatusOK, h.svc.Aggregate(c.Request.Context(), req))
}

type queryRequest struct {
    services.FeedRequest
    Filters domain.FilterState `json:"filters"`
}

func (h *Handlers) FeedQuery(c *gin.Context) {
    var req queryRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        req = queryRequest{}
    }
    c.JSON(http.StatusOK, h.svc.Query(c.Request.Context(), req.FeedRequest, req.Filters))
}

func (h *Handlers) FeedSummary(c *gin.Context) {
    var req queryRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        req = queryRequest{}
    }
    resp := h.svc.Summarize(c.Request.Context(), req.FeedRequest, req.Filters)
    if resp.Error == services.ErrSummarizerDisabled.Error() {
        c.JSON(http.StatusServiceUnavailable, resp)
        return
    }
    c.JSON(http.StatusOK, resp)
}

func (h *Handlers) AccessInfo(c *gin.Context) {
    info, err := h.svc.AccessInfo(c.Request.Context(), c.Query("issueKey"))
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, info)
}

func (h *Handlers) AllProjects(c *gin.Context) {
    projects, err := h.svc.Gate().AllProjects(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects"})
        return
    }
    c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *Handlers) ListAllowedProjects(c *gin.Context) {
    view, err := h.svc.Gate().ListAllowedProjects(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, view)
}

func (h *Handlers) AddAllowedProject(c *gin.Context) {
    var body struct {
        ProjectKey string `json:"projectKey"`
    }
    _ = c.ShouldBindJSON(&body)
    view, err := h.svc.Gate().AddAllowedProject(c.Request.Context(), body.ProjectKey)
    if err != nil {
        status := http.StatusInternalServerError
        if errors.Is(err, policy.ErrMissingProjectKey) { status = http.StatusBadRequest }
        c.JSON(status, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"success": true, "allowedProjects": view.AllowedProjects, "allowedProjectsData": view.AllowedProjectsData})
}

func (h *Handlers) RemoveAllowedProject(c *gin.Context) {
    view, err := h.svc.Gate().RemoveAllowedProject(c.Request.Context(), c.Param("projectKey"))
    if err != nil {
        status := http.StatusInternalServerError
        if errors.Is(err, policy.ErrMissingProjectKey) { status = http.StatusBadRequest }
        c.JSON(status, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"success": true, "allowedProjects": view.AllowedProjects, "allowedProjectsData": view.AllowedProjectsData})
}

func (h *Handlers) ProjectSettings(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.ProjectSettings(c.Request.Context(), c.Query("projectKey")))
}

func (h *Handlers) ToggleProject(c *gin.Context) {
    var body struct {
        ProjectKey string `json:"projectKey"`
        Enabled    bool   `json:"enabled"`
    }
    _ = c.ShouldBindJSON(&body)
    err := h.svc.Gate().ToggleProject(c.Request.Context(), body.ProjectKey, body.Enabled)
    switch {
    case err == nil:
        state := "disabled"
        if body.Enabled { state = "enabled" }
        c.JSON(http.StatusOK, gin.H{"success": true, "enabled": body.Enabled, "message": "App " + state + " for project " + body.ProjectKey})
    case errors.Is(err, policy.ErrMissingProjectKey):
        c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
    case errors.Is(err, policy.ErrNotAllowlisted), errors.Is(err, policy.ErrNotProjectAdmin):
        c.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
    default:
        c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
    }
}
