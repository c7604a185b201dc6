// Package logger builds *slog.Logger instances for the management API
// services.
//
// New applies a set of Option functions: output format (text or json),
// minimum level, static attributes (service, environment, node id) and
// ContextExtractor callbacks that copy request- or run-scoped values from a
// context.Context into every record.
//
// Attribute helpers in attr.go (Error, NodeID, MessageID, Recipient, Job, ...)
// keep key names consistent across packages:
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "search-indexer"),
//	    logger.WithNode(node.ID()),
//	)
//	log.InfoContext(ctx, "message acknowledged", logger.MessageID(id))
//
// Error returns an empty attribute for a nil error, so it can be passed
// without a nil check.
package logger
