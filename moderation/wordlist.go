package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"strings"
)

//go:embed censored/en.txt
var censoredFS embed.FS

// LoadDefaultWords returns the embedded censored word list. Blank
// lines and comments are skipped.
func LoadDefaultWords() ([]string, error) {
	data, err := censoredFS.ReadFile("censored/en.txt")
	if err != nil {
		return nil, err
	}

	var words []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, scanner.Err()
}
