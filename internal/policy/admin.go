package policy

import (
    "context"
    "errors"
    "sort"
    "time"

    "github.com/navi-04/Issue-change-log/internal/domain"
)

// AllowlistView is what the admin listing returns: the plain key list plus
// the denormalized metadata map.
type AllowlistView struct {
    AllowedProjects     []string                      `json:"allowedProjects"`
    AllowedProjectsData map[string]domain.ProjectMeta `json:"allowedProjectsData"`
}

func (g *Gate) projectMeta(ctx context.Context, projectKey string) domain.ProjectMeta {
    meta := domain.ProjectMeta{
        Key:       projectKey,
        Name:      projectKey,
        ID:        "N/A",
        DateAdded: time.Now().UTC().Format(domain.ISOMillis),
    }
    pm, err := g.dir.Project(ctx, projectKey)
    if err != nil {
        // keep the minimal entry so the listing stays total
        g.log.Warn().Err(err).Str("project", projectKey).Msg("project metadata fetch failed")
        return meta
    }
    if name, ok := pm["name"].(string); ok && name != "" { meta.Name = name }
    if id, ok := pm["id"].(string); ok && id != "" { meta.ID = id }
    return meta
}

// ListAllowedProjects returns the allowlist with metadata, lazily
// backfilling entries that predate the metadata cache. At most one store
// write happens per call, and only when something was actually missing.
func (g *Gate) ListAllowedProjects(ctx context.Context) (AllowlistView, error) {
    allowed, err := g.AllowedProjects(ctx)
    if err != nil { return AllowlistView{}, err }
    data := map[string]domain.ProjectMeta{}
    if _, err := g.store.Get(ctx, KeyAllowedProjectsData, &data); err != nil {
        return AllowlistView{}, err
    }
    needsUpdate := false
    for _, projectKey := range allowed {
        if _, ok := data[projectKey]; ok { continue }
        data[projectKey] = g.projectMeta(ctx, projectKey)
        needsUpdate = true
    }
    if needsUpdate {
        if err := g.store.Set(ctx, KeyAllowedProjectsData, data); err != nil {
            return AllowlistView{}, err
        }
    }
    if allowed == nil { allowed = []string{} }
    return AllowlistView{AllowedProjects: allowed, AllowedProjectsData: data}, nil
}

// AddAllowedProject grants a project site-wide access: stores its metadata,
// initializes its settings to enabled, and rewrites the plain key list.
func (g *Gate) AddAllowedProject(ctx context.Context, projectKey string) (AllowlistView, error) {
    if projectKey == "" { return AllowlistView{}, ErrMissingProjectKey }

    data := map[string]domain.ProjectMeta{}
    if _, err := g.store.Get(ctx, KeyAllowedProjectsData, &data); err != nil {
        return AllowlistView{}, err
    }
    if _, ok := data[projectKey]; !ok {
        pm, err := g.dir.Project(ctx, projectKey)
        if err != nil { return AllowlistView{}, errors.New("failed to fetch project details") }
        meta := domain.ProjectMeta{
            Key:       projectKey,
            Name:      projectKey,
            ID:        projectKey,
            DateAdded: time.Now().UTC().Format(domain.ISOMillis),
        }
        if name, ok := pm["name"].(string); ok && name != "" { meta.Name = name }
        if id, ok := pm["id"].(string); ok && id != "" { meta.ID = id }
        data[projectKey] = meta
        if err := g.store.Set(ctx, KeyAllowedProjectsData, data); err != nil {
            return AllowlistView{}, err
        }
        enabled := true
        if err := g.store.Set(ctx, SettingsKey(projectKey), domain.ProjectSettings{Enabled: &enabled}); err != nil {
            return AllowlistView{}, err
        }
        if err := g.store.Set(ctx, KeyAllowedProjects, sortedKeys(data)); err != nil {
            return AllowlistView{}, err
        }
    }
    return AllowlistView{AllowedProjects: sortedKeys(data), AllowedProjectsData: data}, nil
}

// RemoveAllowedProject revokes a project's site-wide access. Its settings
// entry is left behind; settings are only meaningful for allowlisted keys.
func (g *Gate) RemoveAllowedProject(ctx context.Context, projectKey string) (AllowlistView, error) {
    if projectKey == "" { return AllowlistView{}, ErrMissingProjectKey }
    data := map[string]domain.ProjectMeta{}
    if _, err := g.store.Get(ctx, KeyAllowedProjectsData, &data); err != nil {
        return AllowlistView{}, err
    }
    delete(data, projectKey)
    if err := g.store.Set(ctx, KeyAllowedProjectsData, data); err != nil {
        return AllowlistView{}, err
    }
    if err := g.store.Set(ctx, KeyAllowedProjects, sortedKeys(data)); err != nil {
        return AllowlistView{}, err
    }
    return AllowlistView{AllowedProjects: sortedKeys(data), AllowedProjectsData: data}, nil
}

// ToggleProject flips the per-project enable flag. Requires the project to
// be allowlisted and the caller to hold project admin rights.
func (g *Gate) ToggleProject(ctx context.Context, projectKey string, enabled bool) error {
    if projectKey == "" { return ErrMissingProjectKey }
    allowed, err := g.CheckProjectAccess(ctx, projectKey)
    if err != nil { return err }
    // the bootstrap allow-all does not extend to mutations: an empty
    // allowlist means nothing to toggle
    list, err := g.AllowedProjects(ctx)
    if err != nil { return err }
    if !allowed || len(list) == 0 { return ErrNotAllowlisted }

    isAdmin, err := g.IsProjectAdmin(ctx, projectKey)
    if err != nil || !isAdmin { return ErrNotProjectAdmin }

    s, err := g.ProjectSettings(ctx, projectKey)
    if err != nil { return err }
    s.Enabled = &enabled
    s.LastUpdated = time.Now().UTC().Format(domain.ISOMillis)
    return g.store.Set(ctx, SettingsKey(projectKey), s)
}

// AllProjects lists every project in the Jira instance.
func (g *Gate) AllProjects(ctx context.Context) ([]domain.ProjectInfo, error) {
    raw, err := g.dir.Projects(ctx)
    if err != nil { return nil, err }
    out := make([]domain.ProjectInfo, 0, len(raw))
    for _, p := range raw {
        info := domain.ProjectInfo{}
        if v, ok := p["key"].(string); ok { info.Key = v }
        if v, ok := p["name"].(string); ok { info.Name = v }
        if v, ok := p["id"].(string); ok { info.ID = v }
        if v, ok := p["projectTypeKey"].(string); ok { info.ProjectTypeKey = v }
        out = append(out, info)
    }
    return out, nil
}

func sortedKeys(m map[string]domain.ProjectMeta) []string {
    keys := make([]string, 0, len(m))
    for k := range m { keys = append(keys, k) }
    sort.Strings(keys)
    return keys
}
