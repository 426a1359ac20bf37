/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/navi-04/Issue-change-log/internal/adapters/jira"
    "github.com/navi-04/Issue-change-log/internal/adapters/openai"
    "github.com/navi-04/Issue-change-log/internal/config"
    httpx "github.com/navi-04/Issue-change-log/internal/http"
    "github.com/navi-04/Issue-change-log/internal/jobs"
    "github.com/navi-04/Issue-change-log/internal/logger"
    "github.com/navi-04/Issue-change-log/internal/policy"
    "github.com/navi-04/Issue-change-log/internal/services"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // Policy store
    var store policy.Store
    switch cfg.StoreBackend {
    case "redis":
        s, err := policy.NewRedisStore(cfg.RedisURL, log)
        if err != nil { log.Fatal().Err(err).Msg("redis connect failed") }
        store = s
    case "memory":
        store = policy.NewMemoryStore()
    default:
        s, err := policy.NewPGStore(ctx, cfg.DBDSN, log)
        if err != nil { log.Fatal().Err(err).Msg("postgres connect failed") }
        store = s
    }
    defer store.Close()

    // Adapters
    jc := jira.NewClient(cfg, log)

    var llm services.LLM
    if cfg.OpenAIKey != "" { llm = openai.NewClient(cfg, log) }

    // Services
    gate := policy.NewGate(store, jc, log)
    svc := services.New(cfg, log, gate, jc, llm)

    // HTTP server (Gin)
    router := httpx.NewRouter(cfg, log, svc)

    // Cron
    cr := jobs.NewCron(cfg, log, svc)
    cr.Start()
    defer cr.Stop()

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
