package logger

import (
	"bytes"
	"fmt"
	"sort"
	"time"
)

// Message is a single log entry handed to the Formatter.
type Message struct {
	Timestamp time.Time
	Namespace string
	Level     Level
	Body      string
	Ctx       Ctx
}

type Formatter interface {
	Format(message Message) ([]byte, error)
}

const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// StringFormatter renders entries as a single line:
//
//	<timestamp> <level> [<namespace>] <body> key1=value1 key2=value2
type StringFormatter struct{}

var _ Formatter = StringFormatter{}

func NewStringFormatter() StringFormatter {
	return StringFormatter{}
}

func (f StringFormatter) Format(message Message) ([]byte, error) {
	var b bytes.Buffer

	fmt.Fprintf(&b, "%s %5s [%20s] %s",
		message.Timestamp.Format(timeFormat),
		message.Level,
		message.Namespace,
		message.Body,
	)

	keys := make([]string, 0, len(message.Ctx))
	for k := range message.Ctx {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, message.Ctx[k])
	}

	b.WriteByte('\n')

	return b.Bytes(), nil
}
