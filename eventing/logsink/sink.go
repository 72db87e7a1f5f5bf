// Package logsink mirrors turn events into a structured logger.
package logsink

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/config"
)

type Sink struct {
	logger    *slog.Logger
	logFormat config.LogFormat
}

var _ agent.EventSink = Sink{}

// New returns nil for a nil logger so callers can pass the result straight
// to eventing.Fanout.
func New(logger *slog.Logger, logFormat config.LogFormat) agent.EventSink {
	if logger == nil {
		return nil
	}
	if logFormat == "" {
		logFormat = config.LogFormatText
	}
	return Sink{
		logger:    logger,
		logFormat: logFormat,
	}
}

func (s Sink) Publish(ctx context.Context, event agent.Event) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	attrs := []slog.Attr{
		slog.String("turn_id", event.TurnID),
		slog.String("type", string(event.Type)),
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}

	if s.logFormat == config.LogFormatJSON {
		attrs = append(attrs, slog.Any("event", event))
		s.logger.LogAttrs(ctx, slog.LevelDebug, "turn event", attrs...)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	attrs = append(attrs, slog.String("event", string(payload)))
	s.logger.LogAttrs(ctx, slog.LevelDebug, "turn event", attrs...)
	return nil
}
