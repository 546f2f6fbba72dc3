package util

import "strings"

// Slugify derives a stable identifier from a provider name:
// lowercase, spaces to hyphens.
func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
