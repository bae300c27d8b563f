package detector

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads a class names file, one name per line. Blank lines and
// lines starting with '#' are skipped. Class ids are line positions among
// the kept lines.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("detector: open labels file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("detector: read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("detector: labels file %s contains no classes", path)
	}
	return labels, nil
}
