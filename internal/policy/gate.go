package policy

import (
    "context"
    "errors"

    "github.com/navi-04/Issue-change-log/internal/domain"
    "github.com/rs/zerolog"
)

// PermissionAdministerProjects is the Jira permission required to mutate a
// project's enable toggle.
const PermissionAdministerProjects = "ADMINISTER_PROJECTS"

var (
    ErrNotAllowlisted   = errors.New("project is not authorized by site administrator")
    ErrNotProjectAdmin  = errors.New("access denied: project administrator privileges required")
    ErrMissingProjectKey = errors.New("project key is required")
)

// ProjectDirectory is the slice of the upstream client the policy layer
// needs: project metadata lookups and the caller's permission flags.
type ProjectDirectory interface {
    Project(ctx context.Context, projectKey string) (map[string]any, error)
    Projects(ctx context.Context) ([]map[string]any, error)
    HasProjectPermission(ctx context.Context, projectKey, permission string) (bool, error)
}

// Gate answers the two read-side access questions (site allowlist, project
// toggle) and the project-admin capability check. It never reaches Jira for
// the first two; those are pure store reads.
type Gate struct {
    store Store
    dir   ProjectDirectory
    log   zerolog.Logger
}

func NewGate(store Store, dir ProjectDirectory, log zerolog.Logger) *Gate {
    return &Gate{store: store, dir: dir, log: log}
}

// AllowedProjects returns the site-wide allowlist; a missing key reads as
// the empty list.
func (g *Gate) AllowedProjects(ctx context.Context) ([]string, error) {
    var allowed []string
    if _, err := g.store.Get(ctx, KeyAllowedProjects, &allowed); err != nil {
        return nil, err
    }
    return allowed, nil
}

// CheckProjectAccess reports whether the project may be served.
//
// Bootstrap rule: an empty allowlist grants access unconditionally, so a
// freshly installed instance works before any admin has configured it.
// This is deliberate (and a known footgun if the list is never populated);
// tests pin the behavior so it cannot regress into an accidental
// fallthrough.
func (g *Gate) CheckProjectAccess(ctx context.Context, projectKey string) (bool, error) {
    allowed, err := g.AllowedProjects(ctx)
    if err != nil { return false, err }
    if len(allowed) == 0 { return true, nil }
    for _, p := range allowed {
        if p == projectKey { return true, nil }
    }
    return false, nil
}

// ProjectSettings reads the per-project toggle; a missing entry is the zero
// value, which IsEnabled() treats as enabled.
func (g *Gate) ProjectSettings(ctx context.Context, projectKey string) (domain.ProjectSettings, error) {
    var s domain.ProjectSettings
    if _, err := g.store.Get(ctx, SettingsKey(projectKey), &s); err != nil {
        return domain.ProjectSettings{}, err
    }
    return s, nil
}

// IsProjectEnabled reports the per-project feature toggle. Allowlisted but
// disabled is a distinct condition from not allowlisted; callers must not
// collapse the two.
func (g *Gate) IsProjectEnabled(ctx context.Context, projectKey string) (bool, error) {
    s, err := g.ProjectSettings(ctx, projectKey)
    if err != nil { return false, err }
    return s.IsEnabled(), nil
}

// IsProjectAdmin delegates to the host's permission query. Only required
// for mutating the per-project toggle.
func (g *Gate) IsProjectAdmin(ctx context.Context, projectKey string) (bool, error) {
    have, err := g.dir.HasProjectPermission(ctx, projectKey, PermissionAdministerProjects)
    if err != nil {
        g.log.Error().Err(err).Str("project", projectKey).Msg("permission lookup failed")
        return false, err
    }
    return have, nil
}
