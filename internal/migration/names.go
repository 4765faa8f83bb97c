package migration

import (
	"regexp"
	"strings"
)

var illegalNameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// reservedNames are Forgejo route segments that cannot be used as owner
// or repository names; a normalized name colliding with one gets a fixed
// suffix instead.
var reservedNames = map[string]string{
	"plugins": "-user",
}

// CleanName maps a GitLab display name onto a Forgejo-legal identifier:
// spaces become underscores, every other character outside
// [A-Za-z0-9_.-] becomes a hyphen. Deterministic, so repeated runs
// compute identical target keys.
func CleanName(name string) string {
	cleaned := strings.ReplaceAll(name, " ", "_")
	cleaned = illegalNameChars.ReplaceAllString(cleaned, "-")

	if suffix, ok := reservedNames[strings.ToLower(cleaned)]; ok {
		return cleaned + suffix
	}
	return cleaned
}
