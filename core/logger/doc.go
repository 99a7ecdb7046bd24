// Package logger builds slog loggers and provides attribute helpers.
//
//	log := logger.New(
//		logger.WithService("letsautomate"),
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithJSONFormatter(),
//	)
//	log.Info("certificate ordered", logger.Domain("www.example.com"), logger.Sequence(42))
//
// Attribute helpers return an empty slog.Attr for zero inputs, so
// log.Info("msg", logger.Error(err)) needs no nil check. Components that accept
// a logger default to Nop().
package logger
