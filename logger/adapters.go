package logger

// SchedulerLogger adapts a CtxZapLogger to loggers that take a message
// followed by key/value pairs, such as the gocron scheduler.
type SchedulerLogger struct {
	l *CtxZapLogger
}

// ForScheduler returns the key/value adapter.
func (l *CtxZapLogger) ForScheduler() SchedulerLogger {
	return SchedulerLogger{l: l}
}

func (s SchedulerLogger) Debug(msg string, args ...any) {
	s.l.base.Sugar().Debugw(msg, args...)
}

func (s SchedulerLogger) Info(msg string, args ...any) {
	s.l.base.Sugar().Infow(msg, args...)
}

func (s SchedulerLogger) Warn(msg string, args ...any) {
	s.l.base.Sugar().Warnw(msg, args...)
}

func (s SchedulerLogger) Error(msg string, args ...any) {
	s.l.base.Sugar().Errorw(msg, args...)
}

// Printf logs at warn level. Worker pools use it for panics and overloads.
func (l *CtxZapLogger) Printf(format string, args ...any) {
	l.base.Sugar().Warnf(format, args...)
}
