package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/leonardsellem/n8n-mcp-server-sub013/fault"
)

// Tool arguments arrive as decoded JSON, so numbers are float64 and nested
// values are maps and slices. The helpers below also accept the string
// forms some MCP clients send.

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func requireString(args map[string]any, key string) (string, error) {
	s := stringArg(args, key)
	if s == "" {
		return "", fault.NewValidationError(key+" is required", map[string]any{"argument": key})
	}
	return s, nil
}

// boolArg returns the argument and whether it was given.
func boolArg(args map[string]any, key string) (value, ok bool, err error) {
	raw, present := args[key]
	if !present || raw == nil {
		return false, false, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, true, nil
	case string:
		b, perr := strconv.ParseBool(strings.TrimSpace(v))
		if perr != nil {
			return false, false, invalidArg(key, "a boolean", raw)
		}
		return b, true, nil
	default:
		return false, false, invalidArg(key, "a boolean", raw)
	}
}

// intArg returns the argument, or 0 when it is absent.
func intArg(args map[string]any, key string) (int, error) {
	raw, present := args[key]
	if !present || raw == nil {
		return 0, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, invalidArg(key, "an integer", raw)
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, invalidArg(key, "an integer", raw)
		}
		f = n
	default:
		return 0, invalidArg(key, "an integer", raw)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, invalidArg(key, "an integer", raw)
	}
	return int(f), nil
}

// decodeArg decodes the argument into out. A string is parsed as JSON.
// It reports whether the argument was given.
func decodeArg(args map[string]any, key string, out any) (bool, error) {
	raw, present := args[key]
	if !present || raw == nil {
		return false, nil
	}
	var data []byte
	if s, ok := raw.(string); ok {
		data = []byte(s)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return false, invalidArg(key, "JSON", raw)
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fault.NewValidationError(
			fmt.Sprintf("%s is not valid: %v", key, err),
			map[string]any{"argument": key},
		)
	}
	return true, nil
}

// stringsArg accepts a list or a comma separated string.
func stringsArg(args map[string]any, key string) []string {
	var out []string
	switch v := args[key].(type) {
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func invalidArg(key, want string, got any) error {
	return fault.NewValidationError(
		fmt.Sprintf("%s must be %s", key, want),
		map[string]any{"argument": key, "value": fmt.Sprint(got)},
	)
}
