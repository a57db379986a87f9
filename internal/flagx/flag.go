// Package flagx contains helpers for pre-scanning command-line arguments
// before the main FlagSet is parsed.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs returns the subset of args made of allowed flags and their
// values. Both "-c value" and "-c=value" forms are recognised; a following
// token that starts with '-' is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigFileFlag extracts the config file path given with -c or -config.
// Other arguments are ignored so the caller's own FlagSet can parse them
// afterwards. It returns "" when neither flag is present.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--c", "--config"}))

	return path
}
