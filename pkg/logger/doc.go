// Package logger builds *slog.Logger instances with consistent settings and
// attribute names across the module.
//
// New takes functional options for format, level, output, static attributes
// and context extractors. WithEnvironment picks sensible presets: text at
// debug level for development, JSON at info level for production.
//
//	log := logger.New(logger.WithEnvironment(cfg.Env, "notifyd"))
//	log.LogAttrs(ctx, slog.LevelWarn, "Persistence call failed",
//	    logger.Operation("delete"),
//	    logger.NotificationID(id),
//	    logger.Error(err),
//	)
//
// Attribute helpers such as Error and UserID return an empty slog.Attr for
// zero input, so callers can pass them unconditionally.
package logger
