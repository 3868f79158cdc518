package main

import (
	"os"
	"strings"

	"taskbridge/internal/cli"
	"taskbridge/internal/model"
)

func isTaskRef(s string) bool {
	_, err := model.ParseIdentifier(strings.TrimSpace(s))
	return err == nil
}

func withShow(argv []string, at int) []string {
	out := make([]string, 0, len(argv)+2)
	out = append(out, argv[:at]...)
	out = append(out, "tasks", "show")
	out = append(out, argv[at:]...)
	return out
}

// rewriteDirectLookupArgs turns `taskbridge <uuid-or-id>` into
// `taskbridge tasks show <uuid-or-id>`.
//
// Cobra treats the first non-flag token as a subcommand, so argv is rewritten
// before parsing. Persistent flags may come first, so the first positional
// token is searched for, not just argv[1].
func rewriteDirectLookupArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":    true,
		"--task-bin":  true,
		"--log-level": true,
		"--format":    true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			// Keep "--" so a ref that looks like a flag stays positional.
			if i+1 < len(argv) && isTaskRef(argv[i+1]) {
				return withShow(argv, i)
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}

		if isTaskRef(a) {
			return withShow(argv, i)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteDirectLookupArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
