package core

// Logger is any leveled logging service.
// Args may include an error, extra context values and the acting user; each
// implementation decides how to report them.
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
