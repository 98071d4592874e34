package logger

// NoOpLogger discards every entry.
type NoOpLogger struct{}

// NewNop returns a logger that does nothing.
func NewNop() Logger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(string, ...Field) {}

func (l *NoOpLogger) Info(string, ...Field) {}

func (l *NoOpLogger) Warn(string, ...Field) {}

func (l *NoOpLogger) Error(string, ...Field) {}

// Fatal does not exit in no-op mode.
func (l *NoOpLogger) Fatal(string, ...Field) {}

func (l *NoOpLogger) With(...Field) Logger { return l }

func (l *NoOpLogger) Sync() error { return nil }

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return l
}
