package jobs

import (
    "context"
    "time"

    "github.com/navi-04/Issue-change-log/internal/config"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

type service interface { RefreshProjectMetadata(ctx context.Context) error }

type Cron struct {
    cfg config.Config
    log zerolog.Logger
    svc service
    c   *cron.Cron
}

// NewCron schedules the nightly refresh that re-syncs stored project names
// and ids against Jira, so renamed projects stay readable in the admin view.
func NewCron(cfg config.Config, log zerolog.Logger, svc service) *Cron {
    c := cron.New(cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
    cr := &Cron{cfg: cfg, log: log, svc: svc, c: c}
    _, _ = c.AddFunc(cfg.MetadataCron, cr.refresh)
    return cr
}

func (cr *Cron) Start(){ cr.c.Start() }
func (cr *Cron) Stop(){ cr.c.Stop() }

func (cr *Cron) refresh(){
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute); defer cancel()
    cr.log.Info().Msg("cron: project metadata refresh")
    if err := cr.svc.RefreshProjectMetadata(ctx); err != nil { cr.log.Error().Err(err).Msg("cron: refresh failed") }
}
