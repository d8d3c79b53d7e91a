// Package logger provides the structured logging interface used across socialfetch.
//
// It wraps zerolog behind a small Logger interface so that packages can accept
// a logger without depending on zerolog directly. Console output is written to
// stderr, leaving stdout free for commands that print JSON results.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.Info("starting fetch")
//	logger.WithField("source", "arxiv").Info("query built")
//
// Tests can pass NewNopLogger() or a capturing NewTestLogger() to any component.
package logger
