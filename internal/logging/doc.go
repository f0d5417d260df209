// Package logging provides structured logging utilities for kubequery.
//
// It centralizes attribute naming so log lines stay queryable across
// the codebase, and sanitizes values that could leak network topology
// (API server IPs inside error messages and host strings).
//
// Log with the shared attribute helpers:
//
//	logger.Info("listing resources",
//	    logging.Operation("query.execute"),
//	    logging.Namespace("default"),
//	    logging.ResourceType("pods"))
//
// Sanitize errors that may carry API server addresses:
//
//	logger.Warn("cluster fetch failed", logging.SanitizedErr(err))
package logging
