package secret

import (
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
)

var bracedVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// escapedDollar stands in for "$$" while os.ExpandEnv runs.
const escapedDollar = "\x00N8N_MCP_DOLLAR\x00"

// ExpandEnvStrict expands environment variables in s, so a config file can
// say apiKey: ${N8N_API_KEY}. Unlike os.ExpandEnv it fails when a ${VAR}
// is unset, naming every missing variable. $VAR expands leniently and $$
// is a literal dollar.
func ExpandEnvStrict(s string) (string, error) {
	s = strings.ReplaceAll(s, "$$", escapedDollar)

	missing := map[string]bool{}
	for _, m := range bracedVar.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(m[1]); !ok {
			missing[m[1]] = true
		}
	}
	if len(missing) > 0 {
		names := slices.Sorted(maps.Keys(missing))
		return "", fmt.Errorf("%w: %s", ErrMissingEnvironmentVars, strings.Join(names, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), escapedDollar, "$"), nil
}
