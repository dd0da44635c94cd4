package logger

// Level defines the log level. Higher levels are more verbose.
type Level int

const (
	LevelUnknown Level = iota - 1
	LevelDisabled
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	case LevelDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

func LevelFromString(s string) Level {
	switch s {
	case "error":
		return LevelError
	case "warn":
		return LevelWarn
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	case "disabled", "":
		return LevelDisabled
	default:
		return LevelUnknown
	}
}

// LevelForNamespace implements Config. A bare Level applies to every
// namespace.
func (l Level) LevelForNamespace(namespace string) Level {
	return l
}

var _ Config = LevelDisabled
