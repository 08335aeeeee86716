package file

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadList returns the entries of a list file such as an actions file, one
// per line in file order. Blank lines and '#' comments, whole-line or
// trailing, are dropped.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		entry, _, _ := strings.Cut(sc.Text(), "#")
		if entry = strings.TrimSpace(entry); entry != "" {
			out = append(out, entry)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	return out, nil
}
