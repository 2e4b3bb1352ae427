// Package reference loads reference keyword dictionaries.
package reference

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// headerNames are first-column values that mark a header row.
var headerNames = map[string]struct{}{
	"charity number": {},
	"charity name":   {},
	"name":           {},
}

// LoadCharityNames reads organisation names from the first column of a CSV
// register. Names are lower-cased and de-duplicated in file order.
func LoadCharityNames(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var names []string
	seen := make(map[string]struct{})
	for line := 0; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read charity register: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff")))
		if name == "" {
			continue
		}
		if _, header := headerNames[name]; header && line == 0 {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// LoadCharityNamesFile opens path and calls LoadCharityNames.
func LoadCharityNamesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open charity register: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only
	return LoadCharityNames(f)
}
