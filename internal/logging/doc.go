// Package logging provides structured logging helpers built on log/slog.
//
// Components receive a *slog.Logger through their constructors and use the
// attribute helpers here so keys stay consistent across the codebase:
//
//	logger := logging.WithOperation(slog.Default(), "gmail.list")
//	logger.Warn("dropped messages",
//	    logging.Count(len(dropped)),
//	    logging.UserHash(identity))
//
// Identities are logged as hashes and tokens are never logged directly.
package logging
