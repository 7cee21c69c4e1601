// Package logging builds the structured loggers used across Saturn.
//
// # Overview
//
// Loggers are plain *slog.Logger values. New wraps the JSON or text handler
// in a handler that:
//   - appends tenant, job, service and request ids carried in the context
//     to every *Context log call
//   - replaces secrets (API keys, bearer tokens, passwords) with [REDACTED]
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", Redact: true})
//	if err != nil {
//	    return err
//	}
//
//	ctx = logging.WithTenantID(ctx, "acme")
//	logger.InfoContext(ctx, "tenant instance built")  // includes tenant_id=acme
//
//	logger.Info("calling upstream", "api_key", "sk-abc123")  // api_key=[REDACTED]
//
// Components take a *slog.Logger in their constructors and tag their
// records with a "component" attribute.
package logging
