package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// NodeID records the processing node identifier under the key "node_id".
func NodeID(id string) slog.Attr {
	return slog.String("node_id", id)
}

// MessageID records the message identifier under the key "message_id".
func MessageID(id string) slog.Attr {
	return slog.String("message_id", id)
}

// Recipient records a message recipient class under the key "recipient".
func Recipient(to string) slog.Attr {
	return slog.String("recipient", to)
}

// APIID records the API identifier under the key "api_id".
func APIID(id string) slog.Attr {
	return slog.String("api_id", id)
}

// RoleScope records a membership role scope under the key "role_scope".
func RoleScope(scope string) slog.Attr {
	return slog.String("role_scope", scope)
}

// Job records a scheduled job name under the key "job".
func Job(name string) slog.Attr {
	return slog.String("job", name)
}

// RunID records the sequence number of a job invocation under the key "run".
func RunID(n int64) slog.Attr {
	return slog.Int64("run", n)
}

// Count records a number of processed items under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
