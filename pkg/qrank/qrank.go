// Package qrank fetches and parses the QRank popularity table, a gzipped
// two-column CSV mapping Wikidata QIDs to page-view derived scores.
package qrank

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultURL = "https://qrank.toolforge.org/download/qrank.csv.gz"

type config struct {
	URL string
}

type Option func(*config)

func WithURL(u string) Option {
	return func(c *config) {
		c.URL = u
	}
}

// Ensure downloads the QRank dump into cacheDir unless a cached copy
// already exists, and returns the cached path.
func Ensure(cacheDir string, opt ...Option) (string, error) {
	c := config{URL: defaultURL}
	for _, f := range opt {
		f(&c)
	}
	cachePath := filepath.Join(cacheDir, "qrank.csv.gz")
	if _, err := os.Stat(cachePath); err == nil {
		log.Printf("Using cached %s", cachePath)
		return cachePath, nil
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("error creating cache directory %s: %v", cacheDir, err)
	}
	log.Printf("Fetching %s", c.URL)
	res, err := http.Get(c.URL)
	if err != nil {
		return "", fmt.Errorf("error getting %s: %v", c.URL, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status fetching %s: %s", c.URL, res.Status)
	}
	w, err := os.Create(cachePath)
	if err != nil {
		return "", fmt.Errorf("error creating %s: %v", cachePath, err)
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		w.Close()
		os.Remove(cachePath)
		return "", fmt.Errorf("error writing %s: %v", cachePath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error closing %s: %v", cachePath, err)
	}
	log.Printf("Saved to %s", cachePath)
	return cachePath, nil
}

// Load reads a cached QRank dump into a QID -> score mapping.
func Load(path string) (map[string]int, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s for reading: %v", path, err)
	}
	defer r.Close()
	scores, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", path, err)
	}
	log.Printf("%d QRank entries loaded", len(scores))
	return scores, nil
}

// Parse reads gzipped "entity,score" lines, skipping the header row.
func Parse(r io.Reader) (map[string]int, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	scores := make(map[string]int)
	scanner := bufio.NewScanner(zr)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entity, rank, found := strings.Cut(line, ",")
		if !found {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		score, err := strconv.Atoi(rank)
		if err != nil {
			return nil, fmt.Errorf("invalid score in line %q: %v", line, err)
		}
		scores[entity] = score
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return scores, nil
}
