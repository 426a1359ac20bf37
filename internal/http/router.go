/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "github.com/gin-gonic/gin"
    "github.com/google/uuid"
    "github.com/navi-04/Issue-change-log/internal/config"
    "github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc any) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context){
        rid := c.GetHeader("X-Request-ID")
        if rid == "" { rid = uuid.NewString() }
        c.Writer.Header().Set("X-Request-ID", rid)
        c.Next()
        log.Info().Str("rid", rid).Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc)

    r.GET("/healthz", h.Healthz)

    api := r.Group("/api")
    api.POST("/feed", h.Feed)
    api.POST("/feed/query", h.FeedQuery)
    api.POST("/feed/summary", h.FeedSummary)
    api.GET("/access-info", h.AccessInfo)
    api.GET("/projects", h.AllProjects)
    api.GET("/project-settings", h.ProjectSettings)
    api.POST("/project-settings/toggle", h.ToggleProject)

    admin := r.Group("/admin")
    admin.GET("/projects", h.ListAllowedProjects)
    admin.POST("/projects", h.AddAllowedProject)
    admin.DELETE("/projects/:projectKey", h.RemoveAllowedProject)

    return r
}
