package services

import (
    "context"
    "errors"
    "time"

    "github.com/navi-04/Issue-change-log/internal/activity"
    "github.com/navi-04/Issue-change-log/internal/domain"
)

// summaryMaxRecords bounds the payload sent to the model; the feed is
// sorted newest-first so the cut keeps the most recent activity.
const summaryMaxRecords = 80

var ErrSummarizerDisabled = errors.New("summarizer is not configured")

// SummaryResponse keeps the envelope discipline of the other entry points.
type SummaryResponse struct {
    Error   string `json:"error,omitempty"`
    Summary string `json:"summary"`
    Records int    `json:"records"`
}

// Summarize condenses the current filtered feed into a short prose digest.
// Gating and filtering are identical to Query; the model only ever sees
// records the caller was allowed to read.
func (s *Service) Summarize(ctx context.Context, req FeedRequest, filters domain.FilterState) SummaryResponse {
    if s.llm == nil {
        return SummaryResponse{Error: ErrSummarizerDisabled.Error()}
    }
    feed := s.Aggregate(ctx, req)
    if feed.Error != "" {
        return SummaryResponse{Error: feed.Error}
    }
    union := make([]domain.Activity, 0, feed.Total)
    union = append(union, feed.Changelog...)
    union = append(union, feed.Comments...)
    union = append(union, feed.Attachments...)

    filters.Page = 1
    filters.PageSize = summaryMaxRecords
    page := activity.Apply(union, filters, time.Now().UTC())

    summary, err := s.llm.SummarizeActivity(ctx, page.Items)
    if err != nil {
        s.log.Error().Err(err).Msg("summarize failed")
        return SummaryResponse{Error: "Unable to generate a summary right now. Please try again later."}
    }
    return SummaryResponse{Summary: summary, Records: len(page.Items)}
}
