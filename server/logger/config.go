package logger

import "strings"

// Config resolves the enabled level for a namespace.
type Config interface {
	LevelForNamespace(namespace string) Level
}

// ConfigMap maps namespace patterns to levels. Namespaces are
// colon-separated. A "*" pattern segment matches exactly one namespace
// segment, "**" matches any remainder. The most specific matching pattern
// wins.
type ConfigMap map[string]Level

var _ Config = ConfigMap(nil)

func (c ConfigMap) LevelForNamespace(namespace string) Level {
	parts := splitNamespace(namespace)

	level := LevelDisabled
	bestScore := -1

	for pattern, patternLevel := range c {
		if score, ok := matchNamespace(parts, splitNamespace(pattern)); ok && score > bestScore {
			bestScore = score
			level = patternLevel
		}
	}

	return level
}

// NewConfigMapFromString parses a comma-separated list of pattern=level
// pairs, for example: "**=info,voicelink:voice=trace". A pair without a
// level enables debug for that pattern. Unknown levels are ignored.
func NewConfigMapFromString(s string) ConfigMap {
	c := ConfigMap{}

	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		pattern, levelStr := pair, "debug"
		if i := strings.LastIndex(pair, "="); i >= 0 {
			pattern, levelStr = pair[:i], pair[i+1:]
		}

		if level := LevelFromString(levelStr); level != LevelUnknown {
			c[pattern] = level
		}
	}

	return c
}

func splitNamespace(namespace string) []string {
	if namespace == "" {
		return nil
	}

	return strings.Split(namespace, ":")
}

// matchNamespace reports whether the pattern matches and how many literal
// segments it matched on, which serves as the specificity score.
func matchNamespace(parts []string, pattern []string) (score int, ok bool) {
	for i, p := range pattern {
		if p == "**" {
			return score, true
		}

		if i >= len(parts) {
			return 0, false
		}

		if p == "*" {
			continue
		}

		if p != parts[i] {
			return 0, false
		}

		score++
	}

	return score, len(pattern) == len(parts)
}
