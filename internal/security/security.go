// Package security classifies shell commands before run_command/
// run_tests execute them, per spec.md §4.4's blocklist/allowlist/
// confirm-required policy.
package security

import (
	"regexp"
	"strings"
)

// Verdict is the outcome of classifying a command.
type Verdict string

const (
	VerdictBlock   Verdict = "block"
	VerdictAllow   Verdict = "allow"
	VerdictConfirm Verdict = "confirm"
)

// blockPatterns are definitely-harmful command shapes, matched against
// the whole trimmed command line.
var blockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*rm\s+-[a-zA-Z]*r[a-zA-Z]*f[a-zA-Z]*\s+/\s*$`),
	regexp.MustCompile(`^\s*rm\s+-[a-zA-Z]*f[a-zA-Z]*r[a-zA-Z]*\s+/\s*$`),
	regexp.MustCompile(`^\s*sudo\b`),
	regexp.MustCompile(`^\s*git\s+push\s+.*--force\b`),
	regexp.MustCompile(`^\s*:\(\)\s*\{.*\};\s*:`), // fork bomb
	regexp.MustCompile(`^\s*mkfs\b`),
	regexp.MustCompile(`^\s*dd\s+.*of=/dev/`),
	regexp.MustCompile(`>\s*/dev/sd[a-z]`),
}

// allowlistExact matches an entire first-token program name that is
// always safe regardless of arguments (read-only by construction).
var allowlistExact = map[string]bool{
	"ls": true, "pwd": true, "cat": true, "echo": true, "which": true,
	"whoami": true, "date": true, "env": true, "node": true, "go": true,
}

// allowlistPrefixes matches a command whose first two tokens are a
// known read-only subcommand.
var allowlistPrefixes = [][2]string{
	{"git", "status"}, {"git", "diff"}, {"git", "log"}, {"git", "show"},
	{"git", "branch"}, {"git", "blame"},
	{"npm", "list"}, {"npm", "ls"}, {"npm", "run"}, {"npm", "test"},
	{"yarn", "list"}, {"pnpm", "list"},
}

// allowlistFirstToken matches tool invocations whose first token alone
// is enough to call them read-only/common, per spec.md's "common
// read-only tools" language (npm itself, without a subcommand, is not
// listed and falls through to VerdictConfirm).
var allowlistFirstToken = map[string]bool{
	"tsc": true, "eslint": true, "prettier": true, "grep": true, "find": true,
}

// Classify returns the verdict for a raw shell command line.
func Classify(command string) Verdict {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return VerdictConfirm
	}

	for _, re := range blockPatterns {
		if re.MatchString(trimmed) {
			return VerdictBlock
		}
	}

	tokens := strings.Fields(trimmed)
	if len(tokens) == 0 {
		return VerdictConfirm
	}

	first := tokens[0]
	if allowlistExact[first] || allowlistFirstToken[first] {
		return VerdictAllow
	}
	if len(tokens) >= 2 {
		for _, pair := range allowlistPrefixes {
			if first == pair[0] && tokens[1] == pair[1] {
				return VerdictAllow
			}
		}
	}

	return VerdictConfirm
}
