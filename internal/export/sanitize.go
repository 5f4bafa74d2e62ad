package export

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// edlPunct is the punctuation an EDL comment line may carry verbatim.
const edlPunct = " -_.,()[]&'+"

// SanitizeName makes a clip or title name safe for a single EDL comment line.
// Control characters are dropped, other unsupported runes become '_', and
// runs of spaces collapse to one. maxLen counts runes; zero means unlimited.
func SanitizeName(s string, maxLen int) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune(edlPunct, r):
			return r
		default:
			return '_'
		}
	}, s)

	name := strings.Join(strings.Fields(mapped), " ")
	if maxLen <= 0 {
		return name
	}
	if runes := []rune(name); len(runes) > maxLen {
		name = strings.TrimSpace(string(runes[:maxLen]))
	}
	return name
}

// ValidateOutputDir checks that dir is a clean, existing directory.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("output directory is required")
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("output directory %q must be a clean path", dir)
	}
	if slices.Contains(strings.Split(filepath.ToSlash(dir), "/"), "..") {
		return fmt.Errorf("output directory %q cannot contain path traversal", dir)
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("output directory %s does not exist", dir)
	}
	if err != nil {
		return fmt.Errorf("stat output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", dir)
	}
	return nil
}
