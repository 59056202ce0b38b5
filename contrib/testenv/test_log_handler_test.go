package testenv

import (
	"log/slog"
)

func ExampleNewTestLogHandler() {
	logger := slog.New(NewTestLogHandler())

	logger.Info("sync connection restored", slog.Int("attempt", 1))
	logger.Warn("notification dropped, channel is full", slog.String("key", "project:1"))
	logger.Debug("frame ignored")

	// Output:
	// [0] INFO: sync connection restored attempt=1
	// [1] WARN: notification dropped, channel is full key=project:1
	// [2] DEBUG: frame ignored
}

func ExampleWithIgnoreAttrs() {
	logger := slog.New(NewTestLogHandler(WithIgnoreDebug(), WithIgnoreAttrs("request_id", "error")))

	logger.Debug("rest call", slog.String("request_id", "a1b2c3"))
	logger.Warn("sync connection lost", slog.String("error", "EOF"))
	logger.Error("failed to restore subscription", slog.String("method", "subscription.subscribe_project"), slog.String("error", "timeout"))

	// Output:
	// [0] WARN: sync connection lost
	// [1] ERROR: failed to restore subscription method=subscription.subscribe_project
}

func ExampleTestLogHandler_WithGroup() {
	logger := slog.New(NewTestLogHandler()).With("transport", "tcp").WithGroup("call")

	logger.Info("sent", slog.String("method", "project.get"))
	logger.With("id", 7).Info("received")

	// Output:
	// [0] INFO: sent transport=tcp, call.method=project.get
	// [1] INFO: received transport=tcp, call.id=7
}
