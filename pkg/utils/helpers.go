package utils

import (
	"os"
	"os/user"
	"strings"
)

// SplitList splits a comma or whitespace separated list, dropping blanks
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Hostname returns the local host name or "unknown"
func Hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}

// Username returns the current user name or "unknown"
func Username() string {
	u, err := user.Current()
	if err != nil || u.Username == "" {
		if env := os.Getenv("USER"); env != "" {
			return env
		}
		return "unknown"
	}
	return u.Username
}
