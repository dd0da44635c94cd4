package logger

// Ctx carries structured key-value context attached to log entries.
type Ctx map[string]interface{}

// WithCtx merges the two contexts into a new one. Keys from other take
// precedence. Either side may be nil.
func (c Ctx) WithCtx(other Ctx) Ctx {
	if len(other) == 0 {
		return c
	}

	if len(c) == 0 {
		return other
	}

	merged := make(Ctx, len(c)+len(other))

	for k, v := range c {
		merged[k] = v
	}

	for k, v := range other {
		merged[k] = v
	}

	return merged
}
