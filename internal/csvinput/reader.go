// Package csvinput parses the optional project allow-list for the
// project pass. The file is a header-bearing CSV whose "url" column
// holds GitLab project clone or web URLs.
package csvinput

import (
	"encoding/csv"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Entry is one allow-listed project
type Entry struct {
	// URL is the raw value from the csv row
	URL string
	// FullPath is the namespace/project path extracted from the URL
	FullPath string
	// HostMismatch marks rows whose host differs from the configured
	// source instance. Such rows are still returned; the caller decides
	// whether to warn or skip.
	HostMismatch bool
}

// Read loads the allow-list at path. sourceURL is the configured GitLab
// instance URL used for the host cross-check.
func Read(path, sourceURL string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file %s is empty", path)
	}

	urlCol := -1
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), "url") {
			urlCol = i
			break
		}
	}
	if urlCol < 0 {
		return nil, fmt.Errorf("csv file %s has no url column", path)
	}

	sourceHost := hostOf(sourceURL)
	entries := make([]Entry, 0, len(records)-1)
	for _, row := range records[1:] {
		if urlCol >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[urlCol])
		if raw == "" {
			continue
		}
		fullPath, host, err := splitProjectURL(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid project url %q: %w", raw, err)
		}
		entries = append(entries, Entry{
			URL:          raw,
			FullPath:     fullPath,
			HostMismatch: sourceHost != "" && host != "" && !strings.EqualFold(host, sourceHost),
		})
	}
	return entries, nil
}

// splitProjectURL extracts the namespace/project path and host from a
// clone or web URL. A trailing .git suffix is dropped.
func splitProjectURL(raw string) (fullPath, host string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	p := strings.Trim(u.Path, "/")
	p = strings.TrimSuffix(p, ".git")
	if p == "" {
		return "", "", fmt.Errorf("url has no project path")
	}
	return p, u.Hostname(), nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
