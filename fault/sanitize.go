package fault

import (
	"regexp"
	"sort"
	"unicode/utf8"
)

const (
	// Redacted replaces values stored under sensitive keys.
	Redacted = "[REDACTED]"

	// TruncatedMarker terminates string values that exceeded MaxValueLength.
	TruncatedMarker = "[TRUNCATED]"

	// MaxValueLength is the longest string (in characters) kept verbatim.
	MaxValueLength = 1024

	// MaxContextKeys bounds the number of keys kept in a context map.
	MaxContextKeys = 50

	// MaxContextDepth bounds how many nested maps and slices are sanitized.
	// Deeper values, including cyclic ones, become DepthMarker.
	MaxContextDepth = 10

	// DepthMarker replaces values nested deeper than MaxContextDepth.
	DepthMarker = "[MAX_DEPTH]"

	// truncatedKeysField records how many keys were dropped by MaxContextKeys.
	truncatedKeysField = "_truncatedKeys"
)

// SensitiveKeys lists the key fragments whose values are always redacted.
// Matching is a case-insensitive substring match.
var SensitiveKeys = []string{
	"password",
	"token",
	"secret",
	"key",
	"credential",
	"auth",
}

var sensitiveKeyPattern = regexp.MustCompile(`(?i)(password|token|secret|key|credential|auth)`)

// IsSensitiveKey reports whether values under key must be redacted.
func IsSensitiveKey(key string) bool {
	return sensitiveKeyPattern.MatchString(key)
}

// SanitizeContext returns a sanitized copy of ctx.
//
// Values under sensitive keys become Redacted, strings longer than
// MaxValueLength are truncated and end with TruncatedMarker, nested maps and
// slices are sanitized recursively up to MaxContextDepth. Everything else
// passes through unchanged. The input map is never modified.
func SanitizeContext(ctx map[string]any) map[string]any {
	return sanitizeMap(ctx, 0)
}

func sanitizeMap(ctx map[string]any, depth int) map[string]any {
	if len(ctx) == 0 {
		return map[string]any{}
	}

	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dropped := 0
	if len(keys) > MaxContextKeys {
		dropped = len(keys) - MaxContextKeys
		keys = keys[:MaxContextKeys]
	}

	out := make(map[string]any, len(keys)+1)
	for _, k := range keys {
		if IsSensitiveKey(k) {
			out[k] = Redacted
			continue
		}
		out[k] = sanitizeValue(ctx[k], depth+1)
	}
	if dropped > 0 {
		out[truncatedKeysField] = dropped
	}
	return out
}

func sanitizeValue(v any, depth int) any {
	switch val := v.(type) {
	case string:
		return TruncateString(val)
	case map[string]any:
		if depth > MaxContextDepth {
			return DepthMarker
		}
		return sanitizeMap(val, depth)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return sanitizeMap(m, depth)
	case []any:
		if depth > MaxContextDepth {
			return DepthMarker
		}
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item, depth+1)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = TruncateString(s)
		}
		return out
	case error:
		return TruncateString(val.Error())
	default:
		return v
	}
}

// TruncateString shortens s to MaxValueLength characters, the last of which
// spell TruncatedMarker. Strings within the limit are returned unchanged.
func TruncateString(s string) string {
	if utf8.RuneCountInString(s) <= MaxValueLength {
		return s
	}
	keep := MaxValueLength - utf8.RuneCountInString(TruncatedMarker)
	runes := []rune(s)
	return string(runes[:keep]) + TruncatedMarker
}
