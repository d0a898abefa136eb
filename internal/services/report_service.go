package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stripbot/internal/core"
	"stripbot/internal/export"
	"stripbot/internal/metrics"
	"stripbot/internal/session"
)

// ErrEmptyMessage is returned when a message carries no text.
var ErrEmptyMessage = errors.New("message has no text")

// CollectResult describes what one collected message contributed.
type CollectResult struct {
	MessageCount int
	Values       []core.ClassifiedValue
	Issues       []core.TokenIssue
	Preferences  session.Preferences
}

// Report is the processed state of a user's batch.
type Report struct {
	UserID      int64
	Messages    int
	Batch       core.Batch
	Summary     core.Summary
	Issues      []core.TokenIssue
	Preferences session.Preferences
	StartedAt   time.Time
}

// ReportService collects forwarded messages into per-user batches and turns
// them into reports and exports.
type ReportService struct {
	sessions Sessions
	pipeline *core.Pipeline
	now      func() time.Time
}

func NewReportService(sessions Sessions, pipeline *core.Pipeline) *ReportService {
	if pipeline == nil {
		pipeline = core.DefaultPipeline()
	}
	return &ReportService{
		sessions: sessions,
		pipeline: pipeline,
		now:      time.Now,
	}
}

// Threshold is the value above which numbers are Amounts.
func (s *ReportService) Threshold() decimal.Decimal {
	return s.pipeline.Classifier().Threshold
}

// Start begins a fresh collection, dropping previously collected messages.
func (s *ReportService) Start(ctx context.Context, userID int64) session.Session {
	_ = s.sessions.Update(userID, func(sess *session.Session) error {
		sess.Reset()
		sess.Collecting = true
		sess.StartedAt = s.now()
		return nil
	})
	slog.InfoContext(ctx, "Collection started", "user_id", userID)
	return s.sessions.Get(userID)
}

// Collect classifies one message and appends its values to the user's
// batch. Collection starts implicitly on the first message.
func (s *ReportService) Collect(ctx context.Context, userID int64, msg core.RawMessage) (CollectResult, error) {
	if strings.TrimSpace(msg.Text) == "" {
		return CollectResult{}, ErrEmptyMessage
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = s.now()
	}

	var res CollectResult
	err := s.sessions.Update(userID, func(sess *session.Session) error {
		if !sess.Collecting {
			sess.Collecting = true
			sess.StartedAt = s.now()
		}
		values, issues := s.pipeline.ProcessMessage(len(sess.Messages), msg.Text)
		sess.Messages = append(sess.Messages, msg)
		sess.Batch = append(sess.Batch, values...)
		sess.Issues = append(sess.Issues, issues...)
		res.Values = values
		res.Issues = issues
		res.MessageCount = len(sess.Messages)
		res.Preferences = sess.Preferences
		return nil
	})
	if err != nil {
		return CollectResult{}, fmt.Errorf("collect message: %w", err)
	}

	metrics.PipelineMessages.Inc()
	for _, v := range res.Values {
		metrics.PipelineValues.WithLabelValues(v.Kind.String()).Inc()
	}
	if len(res.Issues) > 0 {
		metrics.PipelineParseErrors.Add(float64(len(res.Issues)))
		slog.DebugContext(ctx, "Skipped unparseable tokens",
			"user_id", userID, "issues", len(res.Issues))
	}
	return res, nil
}

// Clear drops collected messages and stops collecting. Preferences and
// custom banks survive.
func (s *ReportService) Clear(ctx context.Context, userID int64) {
	_ = s.sessions.Update(userID, func(sess *session.Session) error {
		sess.Reset()
		sess.Collecting = false
		return nil
	})
	slog.InfoContext(ctx, "Session cleared", "user_id", userID)
}

// Process summarizes the collected batch. The batch is kept so it can still
// be exported afterwards.
func (s *ReportService) Process(ctx context.Context, userID int64) (Report, error) {
	r, err := s.report(userID)
	if err != nil {
		return Report{}, err
	}
	slog.InfoContext(ctx, "Batch processed",
		"user_id", userID,
		"messages", r.Messages,
		"amounts", r.Summary.AmountCount,
		"charges", r.Summary.ChargeCount)
	return r, nil
}

// Stats returns the figures of Process without logging a processed batch.
func (s *ReportService) Stats(ctx context.Context, userID int64) (Report, error) {
	return s.report(userID)
}

func (s *ReportService) report(userID int64) (Report, error) {
	sess := s.sessions.Get(userID)
	if len(sess.Messages) == 0 {
		return Report{}, session.ErrNoMessages
	}
	return Report{
		UserID:      userID,
		Messages:    len(sess.Messages),
		Batch:       sess.Batch,
		Summary:     core.Summarize(sess.Batch),
		Issues:      sess.Issues,
		Preferences: sess.Preferences,
		StartedAt:   sess.StartedAt,
	}, nil
}

// ExportLineItems returns the batch as export records dated date.
func (s *ReportService) ExportLineItems(ctx context.Context, userID int64, date core.Date) ([]core.LineItem, error) {
	sess := s.sessions.Get(userID)
	if len(sess.Messages) == 0 {
		return nil, session.ErrNoMessages
	}
	return core.LineItems(date, "", sess.Batch), nil
}

// Export writes the batch to w in format f and returns the suggested file
// name.
func (s *ReportService) Export(ctx context.Context, userID int64, f export.Format, date core.Date, w io.Writer) (string, error) {
	sess := s.sessions.Get(userID)
	if len(sess.Messages) == 0 {
		return "", session.ErrNoMessages
	}
	if err := export.WriteBatch(w, f, date, sess.Batch, sess.Preferences.IncludeCurrency); err != nil {
		return "", fmt.Errorf("export batch: %w", err)
	}
	slog.InfoContext(ctx, "Batch exported",
		"user_id", userID, "format", string(f), "values", len(sess.Batch))
	return export.FileName("report", userID, s.now(), f), nil
}

// Preferences returns the user's current preferences.
func (s *ReportService) Preferences(userID int64) session.Preferences {
	return s.sessions.Get(userID).Preferences
}

// SetPreferences applies fn to the user's preferences.
func (s *ReportService) SetPreferences(ctx context.Context, userID int64, fn func(*session.Preferences)) session.Preferences {
	var prefs session.Preferences
	_ = s.sessions.Update(userID, func(sess *session.Session) error {
		fn(&sess.Preferences)
		prefs = sess.Preferences
		return nil
	})
	slog.InfoContext(ctx, "Preferences updated",
		"user_id", userID,
		"include_currency", prefs.IncludeCurrency,
		"output_format", string(prefs.OutputFormat),
		"silent_collection", prefs.SilentCollection)
	return prefs
}
