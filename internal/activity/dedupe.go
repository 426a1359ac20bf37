package activity

import "github.com/navi-04/Issue-change-log/internal/domain"

// Dedupe removes structurally identical records, keeping the first
// occurrence. The same issue may be fetched twice across retries or
// overlapping multi-issue requests and the upstream API carries no
// idempotency token, so equality is structural: type + timestamp plus the
// type's identifying columns. Two distinct comments posted in the same
// millisecond with identical text collapse to one; that loss is accepted.
func Dedupe(items []domain.Activity) []domain.Activity {
    seen := make(map[string]struct{}, len(items))
    out := make([]domain.Activity, 0, len(items))
    for _, a := range items {
        k := dedupeKey(a)
        if _, dup := seen[k]; dup { continue }
        seen[k] = struct{}{}
        out = append(out, a)
    }
    return out
}

func dedupeKey(a domain.Activity) string {
    k := string(a.Type) + "|" + a.Timestamp
    switch a.Type {
    case domain.ActivityChangelog:
        k += "|" + a.Field + "|" + a.From + "|" + a.To
    case domain.ActivityAttachment:
        k += "|" + a.Filename
    case domain.ActivityComment:
        k += "|" + a.Content
    }
    return k
}
