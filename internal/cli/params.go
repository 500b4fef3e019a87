package cli

import (
	"fmt"
	"strings"

	"sharemeow/internal/templates"
)

// parseParams turns key=value arguments into Params. Values may contain
// "=", and a literal "\n" in a value becomes a newline so multi-line code
// can be passed from a shell.
func parseParams(args []string) (templates.Params, error) {
	params := make(templates.Params, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &usageError{fmt.Errorf("invalid parameter %q: want key=value", arg)}
		}
		if _, dup := params[key]; dup {
			return nil, &usageError{fmt.Errorf("parameter %q given more than once", key)}
		}
		params[key] = strings.ReplaceAll(value, `\n`, "\n")
	}
	if params.Name() == "" {
		return nil, &usageError{fmt.Errorf("missing %s=<Name> parameter", templates.ParamTemplate)}
	}
	return params, nil
}
