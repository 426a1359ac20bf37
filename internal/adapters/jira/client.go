/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "os"
    "strings"
    "time"

    "github.com/navi-04/Issue-change-log/internal/config"
    "github.com/rs/zerolog"
)

// Client talks to the Jira REST surface on behalf of the service: issue to
// project resolution, changelog histories, comments, attachments, project
// metadata and the caller's permission flags. Raw records come back as
// map[string]any; the activity normalizer owns the shaping.
type Client struct {
    baseURL string
    token   string
    basic   string
    user    string
    pass    string
    http    *http.Client
    log     zerolog.Logger
    apiVer  string
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        baseURL: cfg.JiraBaseURL,
        token:   cfg.JiraPAT,
        basic:   getenvBasic(),
        user:    cfg.JiraUsername,
        pass:    cfg.JiraPassword,
        http:    &http.Client{ Timeout: cfg.HTTPTimeout },
        log:     log,
        apiVer:  cfg.JiraAPIVersion,
    }
}

// getenvBasic reads JIRA_BASIC_AUTH from environment if present (format: user:pass base64), optional
func getenvBasic() string {
    v := ""
    if s := strings.TrimSpace(os.Getenv("JIRA_BASIC_AUTH")); s != "" { v = s }
    return v
}

func (c *Client) restPath(suffix string) string {
    if c.apiVer == "2" { return "/rest/api/2" + suffix }
    return "/rest/api/3" + suffix
}

func (c *Client) apiURL(path string, q url.Values) string {
    base := strings.TrimRight(c.baseURL, "/")
    if !strings.HasPrefix(path, "/") { path = "/" + path }
    u := base + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) authorize(req *http.Request) {
    if c.token != "" {
        req.Header.Set("Authorization", "Bearer "+c.token)
    } else if c.user != "" && c.pass != "" {
        req.SetBasicAuth(c.user, c.pass)
    } else if c.basic != "" {
        req.Header.Set("Authorization", "Basic "+c.basic)
    }
}

func (c *Client) doJSON(ctx context.Context, method, u string) (map[string]any, error) {
    if c.baseURL == "" { return nil, errors.New("jira: empty baseURL") }
    var lastErr error
    for attempt := 0; attempt < 3; attempt++ {
        req, err := http.NewRequestWithContext(ctx, method, u, nil)
        if err != nil { return nil, err }
        c.authorize(req)
        resp, err := c.http.Do(req)
        if err != nil { lastErr = err } else {
            defer resp.Body.Close()
            if resp.StatusCode >= 300 {
                b, _ := io.ReadAll(resp.Body)
                // retry on 429/5xx
                if resp.StatusCode == 429 || resp.StatusCode >= 500 {
                    lastErr = fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                } else {
                    return nil, fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
                }
            } else {
                var out map[string]any
                if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return nil, err }
                return out, nil
            }
        }
        // backoff
        time.Sleep(time.Duration(300*(1<<attempt)) * time.Millisecond)
    }
    return nil, lastErr
}

// ProjectKeyForIssue resolves the owning project key for an issue.
func (c *Client) ProjectKeyForIssue(ctx context.Context, issueKey string) (string, error) {
    if issueKey == "" { return "", errors.New("jira: empty issue key") }
    q := url.Values{}
    q.Set("fields", "project")
    u := c.apiURL(c.restPath("/issue/"+url.PathEscape(issueKey)), q)
    m, err := c.doJSON(ctx, http.MethodGet, u)
    if err != nil { return "", err }
    if fields, ok := m["fields"].(map[string]any); ok {
        if pj, ok := fields["project"].(map[string]any); ok {
            if key, ok := pj["key"].(string); ok { return key, nil }
        }
    }
    return "", errors.New("jira: project key missing in issue response")
}

// IssueChangelog returns every changelog history entry for the issue. The
// first page comes from ?expand=changelog; when the server reports more
// than it expanded, the rest is paged through /changelog.
func (c *Client) IssueChangelog(ctx context.Context, issueKey string) ([]map[string]any, error) {
    if issueKey == "" { return nil, errors.New("jira: empty issue key") }
    q := url.Values{}
    q.Set("expand", "changelog")
    u := c.apiURL(c.restPath("/issue/"+url.PathEscape(issueKey)), q)
    m, err := c.doJSON(ctx, http.MethodGet, u)
    if err != nil { return nil, err }

    var histories []map[string]any
    totalHist, haveHist, startHist := 0, 0, 0
    if ch, ok := m["changelog"].(map[string]any); ok {
        if t, ok := ch["total"].(float64); ok { totalHist = int(t) }
        if sAt, ok := ch["startAt"].(float64); ok { startHist = int(sAt) }
        if hs, ok := ch["histories"].([]any); ok {
            for _, h0 := range hs {
                if hv, _ := h0.(map[string]any); hv != nil { histories = append(histories, hv); haveHist++ }
            }
        }
    }
    if totalHist == 0 || totalHist > haveHist {
        hStart := startHist + haveHist
        for {
            q := url.Values{}
            q.Set("startAt", fmt.Sprint(hStart))
            q.Set("maxResults", "100")
            pu := c.apiURL(c.restPath("/issue/"+url.PathEscape(issueKey)+"/changelog"), q)
            hm, err := c.doJSON(ctx, http.MethodGet, pu)
            if err != nil { return histories, err }
            var hvals []any
            if vv, ok := hm["values"].([]any); ok { hvals = vv } else if vv, ok := hm["histories"].([]any); ok { hvals = vv }
            if len(hvals) == 0 { break }
            for _, h0 := range hvals {
                if hv, _ := h0.(map[string]any); hv != nil { histories = append(histories, hv) }
            }
            if totalF, ok := hm["total"].(float64); ok { totalHist = int(totalF) }
            if startF, ok := hm["startAt"].(float64); ok {
                if maxF, ok2 := hm["maxResults"].(float64); ok2 {
                    next := int(startF) + int(maxF)
                    if next >= totalHist { return histories, nil }
                    hStart = next
                    continue
                }
            }
            hStart += len(hvals)
            if totalHist > 0 && hStart >= totalHist { break }
        }
    }
    return histories, nil
}

// IssueComments pages through every comment on the issue using the
// response metadata (total/startAt/maxResults).
func (c *Client) IssueComments(ctx context.Context, issueKey string) ([]map[string]any, error) {
    if issueKey == "" { return nil, errors.New("jira: empty issue key") }
    var out []map[string]any
    cStart := 0
    for {
        q := url.Values{}
        q.Set("startAt", fmt.Sprint(cStart))
        q.Set("maxResults", "100")
        u := c.apiURL(c.restPath("/issue/"+url.PathEscape(issueKey)+"/comment"), q)
        cm, err := c.doJSON(ctx, http.MethodGet, u)
        if err != nil { return out, err }
        carr, _ := cm["comments"].([]any)
        if len(carr) == 0 { break }
        for _, c0 := range carr {
            if cmi, _ := c0.(map[string]any); cmi != nil { out = append(out, cmi) }
        }
        total, _ := cm["total"].(float64)
        startAtResp, _ := cm["startAt"].(float64)
        maxResp, _ := cm["maxResults"].(float64)
        if total == 0 { break }
        next := int(startAtResp) + int(maxResp)
        if float64(next) >= total { break }
        cStart = next
    }
    return out, nil
}

// IssueAttachments returns the attachment field of the issue.
func (c *Client) IssueAttachments(ctx context.Context, issueKey string) ([]map[string]any, error) {
    if issueKey == "" { return nil, errors.New("jira: empty issue key") }
    q := url.Values{}
    q.Set("fields", "attachment")
    u := c.apiURL(c.restPath("/issue/"+url.PathEscape(issueKey)), q)
    m, err := c.doJSON(ctx, http.MethodGet, u)
    if err != nil { return nil, err }
    var out []map[string]any
    if fields, ok := m["fields"].(map[string]any); ok {
        if arr, ok := fields["attachment"].([]any); ok {
            for _, a0 := range arr {
                if am, _ := a0.(map[string]any); am != nil { out = append(out, am) }
            }
        }
    }
    return out, nil
}

// Project fetches metadata for one project.
func (c *Client) Project(ctx context.Context, projectKey string) (map[string]any, error) {
    if projectKey == "" { return nil, errors.New("jira: empty project key") }
    u := c.apiURL(c.restPath("/project/"+url.PathEscape(projectKey)), nil)
    return c.doJSON(ctx, http.MethodGet, u)
}

// Projects lists every project visible to the caller. The endpoint returns
// an array, so doJSON does not apply here.
func (c *Client) Projects(ctx context.Context) ([]map[string]any, error) {
    u := c.apiURL(c.restPath("/project"), nil)
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
    if err != nil { return nil, err }
    c.authorize(req)
    resp, err := c.http.Do(req)
    if err != nil { return nil, err }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        b, _ := io.ReadAll(resp.Body)
        return nil, fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
    }
    var out []map[string]any
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil { return nil, err }
    return out, nil
}

// HasProjectPermission asks Jira whether the current credentials hold the
// given permission (e.g. ADMINISTER_PROJECTS) in the project.
func (c *Client) HasProjectPermission(ctx context.Context, projectKey, permission string) (bool, error) {
    if projectKey == "" { return false, errors.New("jira: empty project key") }
    q := url.Values{}
    q.Set("projectKey", projectKey)
    q.Set("permissions", permission)
    u := c.apiURL(c.restPath("/mypermissions"), q)
    m, err := c.doJSON(ctx, http.MethodGet, u)
    if err != nil { return false, err }
    if perms, ok := m["permissions"].(map[string]any); ok {
        if p, ok := perms[permission].(map[string]any); ok {
            if have, ok := p["havePermission"].(bool); ok { return have, nil }
        }
    }
    return false, nil
}
