package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
)

// Logging logs one entry per chat request with model, stream flag,
// duration and outcome. Cancellations are logged at info level.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
			start := time.Now()
			err := next.CreateChat(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("model", req.Model),
				slog.Bool("stream", req.Stream),
				slog.Int("tools", len(req.Tools)),
				slog.Duration("duration", time.Since(start)),
			}
			switch {
			case err == nil:
				logger.LogAttrs(ctx, slog.LevelInfo, "chat completed", attrs...)
			case api.IsCancelled(err):
				logger.LogAttrs(ctx, slog.LevelInfo, "chat cancelled", attrs...)
			default:
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "chat failed", attrs...)
			}
			return err
		})
	}
}
