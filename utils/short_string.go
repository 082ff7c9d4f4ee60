package utils

import "fmt"

const ShortenLogLength = 16

// ShortenLog shortens a hash or address for logging purposes
func ShortenLog(s string) string {
	indexCut := ShortenLogLength / 2
	if len(s) <= ShortenLogLength {
		return s
	}
	return fmt.Sprintf("%s...%s", s[:indexCut], s[len(s)-indexCut:])
}
