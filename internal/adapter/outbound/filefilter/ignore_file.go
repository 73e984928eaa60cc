package filefilter

import (
	"bufio"
	"os"
	"strings"
)

// IgnoreFileName is the optional file at the project root listing extra
// ignore patterns, one per line.
const IgnoreFileName = ".eventtrackerignore"

// LoadPatterns reads ignore patterns from a file. Blank lines and lines
// starting with '#' are skipped. A missing file yields no patterns.
func LoadPatterns(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}
