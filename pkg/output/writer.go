// Package output writes the per-place artifacts: a bounding-box file and
// one simplified GeoJSON outline per vertex budget, plus the dataset index.
package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "embed"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"

	"github.com/ray1729/tidyshapes/pkg/places"
	"github.com/ray1729/tidyshapes/pkg/shapes"
)

//go:embed index.html
var indexHTML []byte

// DefaultTargets maps the output file label to its vertex budget.
var DefaultTargets = map[string]int{"1k": 1000, "10k": 10000}

type Writer struct {
	Dir     string
	Targets map[string]int
	Workers int
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Targets: DefaultTargets, Workers: runtime.NumCPU()}
}

type Stats struct {
	Entries  int
	GeoJSON  int
	Warnings int
}

// Run writes every entry across a worker pool, then the index files.
// Failures confined to one entry's geometry are reported as warnings and
// never abort the batch; failures to write to the output directory do.
func (w *Writer) Run(slugMap map[string]places.Entry) (Stats, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return Stats{}, fmt.Errorf("error creating output directory %s: %v", w.Dir, err)
	}
	slugs := make([]string, 0, len(slugMap))
	for slug := range slugMap {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	workers := w.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	prog := newProgress(len(slugs))
	var g errgroup.Group
	g.SetLimit(workers)
	for _, slug := range slugs {
		slug, entry := slug, slugMap[slug]
		g.Go(func() error {
			gjCount, warnings, err := w.writeEntry(slug, entry.Geometry)
			if err != nil {
				return err
			}
			prog.complete(gjCount, warnings)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	prog.finish()

	if err := w.writeIndex(slugs); err != nil {
		return Stats{}, err
	}
	return prog.stats(), nil
}

// writeEntry writes one place's bbox and simplified outlines. The returned
// warnings are keyed by slug and budget label; the error is reserved for
// filesystem failures.
func (w *Writer) writeEntry(slug string, geomWKB []byte) (int, []string, error) {
	geom, err := wkb.Unmarshal(geomWKB)
	if err != nil {
		return 0, []string{fmt.Sprintf("%s: undecodable geometry, skipping: %v", slug, err)}, nil
	}

	b := geom.Bound()
	bbox := fmt.Sprintf("%s,%s,%s,%s\n",
		formatCoord(b.Min[0]), formatCoord(b.Min[1]), formatCoord(b.Max[0]), formatCoord(b.Max[1]))
	if _, err := writeIfChanged(filepath.Join(w.Dir, slug+".bbox"), []byte(bbox)); err != nil {
		return 0, nil, err
	}

	labels := make([]string, 0, len(w.Targets))
	for label := range w.Targets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	gjCount := 0
	var warnings []string
	for _, label := range labels {
		data, err := simplifiedGeoJSON(geom, w.Targets[label])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s.%s.geojson failed: %v", slug, label, err))
			continue
		}
		if data == nil {
			warnings = append(warnings, fmt.Sprintf("%s.%s.geojson simplified to empty, skipping", slug, label))
			continue
		}
		if _, err := writeIfChanged(filepath.Join(w.Dir, fmt.Sprintf("%s.%s.geojson", slug, label)), data); err != nil {
			return gjCount, warnings, err
		}
		gjCount++
	}
	return gjCount, warnings, nil
}

// simplifiedGeoJSON simplifies to the target budget and serializes the
// result. A nil, nil return means the geometry collapsed to nothing at this
// budget. Panics from the simplifier count as a failure of this budget
// only, matching the per-output error granularity of the batch.
func simplifiedGeoJSON(g orb.Geometry, target int) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("simplify panic: %v", r)
		}
	}()
	simplified := shapes.SimplifyToTarget(g, target)
	if shapes.IsEmpty(simplified) {
		return nil, nil
	}
	return geojson.NewGeometry(simplified).MarshalJSON()
}

func (w *Writer) writeIndex(slugs []string) error {
	csv := strings.Join(slugs, "\n") + "\n"
	if _, err := writeIfChanged(filepath.Join(w.Dir, "index.csv"), []byte(csv)); err != nil {
		return err
	}
	if _, err := writeIfChanged(filepath.Join(w.Dir, "index.html"), indexHTML); err != nil {
		return err
	}
	return nil
}

// writeIfChanged writes content to path unless the file already holds
// exactly those bytes. Rebuilds over an existing output directory then
// leave untouched files with their original timestamps.
func writeIfChanged(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, content) {
		return false, nil
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return false, fmt.Errorf("error writing %s: %v", path, err)
	}
	return true, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// progress aggregates worker completions under one lock so the counter
// update and the console line stay atomic with respect to other workers.
// It lives only for the duration of the write phase.
type progress struct {
	mu       sync.Mutex
	total    int
	done     int
	geojson  int
	warnings int
}

func newProgress(total int) *progress {
	return &progress{total: total}
}

func (p *progress) complete(gjCount int, warnings []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.geojson += gjCount
	p.warnings += len(warnings)
	pct := p.done * 100 / p.total
	fmt.Printf("\r  [%3d%%] %d/%d", pct, p.done, p.total)
	for _, w := range warnings {
		fmt.Printf("\n  Warning: %s", w)
	}
}

func (p *progress) finish() {
	if p.total > 0 {
		fmt.Println()
	}
}

func (p *progress) stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Entries: p.done, GeoJSON: p.geojson, Warnings: p.warnings}
}
