package util

import (
	"regexp"
	"strings"
)

var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

const maxPlayerNameLength = 64

func IsValidUUID(s string) bool {
	if s == "" {
		return false
	}
	return uuidRegex.MatchString(s)
}

// HasIDPrefix reports whether id is prefix followed by a UUID.
func HasIDPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	return ok && IsValidUUID(rest)
}

// NormalizePlayerName trims a player name and rejects empty or oversized
// values.
func NormalizePlayerName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxPlayerNameLength {
		return "", false
	}
	return name, true
}
