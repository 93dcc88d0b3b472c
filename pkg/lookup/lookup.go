// Package lookup answers point-in-bounding-box queries over a built
// tidyshapes output directory.
package lookup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dhconnelly/rtreego"
)

// PlaceBounds is one place's bounding box, as written to its .bbox file.
type PlaceBounds struct {
	Slug string
	Xmin float64
	Ymin float64
	Xmax float64
	Ymax float64
}

func (b *PlaceBounds) Bounds() rtreego.Rect {
	r, err := rtreego.NewRect(rtreego.Point{b.Xmin, b.Ymin}, []float64{b.Xmax - b.Xmin, b.Ymax - b.Ymin})
	if err != nil {
		panic(err)
	}
	return r
}

func (b *PlaceBounds) Contains(p rtreego.Point) bool {
	if len(p) != 2 {
		panic("Expected a 2-dimensional point")
	}
	return p[0] >= b.Xmin && p[0] <= b.Xmax && p[1] >= b.Ymin && p[1] <= b.Ymax
}

// Index is an R-tree over every place bounding box in a dataset.
type Index struct {
	rt *rtreego.Rtree
}

// Load reads index.csv and the per-slug .bbox files from a built output
// directory and constructs the R-tree index.
func Load(dir string) (*Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, "index.csv"))
	if err != nil {
		return nil, fmt.Errorf("error reading dataset index: %v", err)
	}
	var objs []rtreego.Spatial
	for _, slug := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if slug == "" {
			continue
		}
		b, err := readBBox(dir, slug)
		if err != nil {
			return nil, err
		}
		// Zero-width rectangles cannot be indexed.
		if b.Xmax == b.Xmin || b.Ymax == b.Ymin {
			continue
		}
		objs = append(objs, b)
	}
	return &Index{rt: rtreego.NewTree(2, 25, 50, objs...)}, nil
}

func readBBox(dir, slug string) (*PlaceBounds, error) {
	path := filepath.Join(dir, slug+".bbox")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %v", path, err)
	}
	fields := strings.Split(strings.TrimSpace(string(data)), ",")
	if len(fields) != 4 {
		return nil, fmt.Errorf("error parsing %s: expected 4 coordinates, got %d", path, len(fields))
	}
	b := PlaceBounds{Slug: slug}
	for i, p := range []*float64{&b.Xmin, &b.Ymin, &b.Xmax, &b.Ymax} {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s: %v", path, err)
		}
		*p = v
	}
	return &b, nil
}

// Size returns the number of indexed places.
func (ix *Index) Size() int {
	return ix.rt.Size()
}

// FindContaining returns the slugs of every place whose bounding box
// contains the given lon/lat point, sorted for stable output.
func (ix *Index) FindContaining(lon, lat float64) []string {
	p := rtreego.Point{lon, lat}
	rect := p.ToRect(1e-9)
	var slugs []string
	for _, hit := range ix.rt.SearchIntersect(rect) {
		b := hit.(*PlaceBounds)
		if b.Contains(p) {
			slugs = append(slugs, b.Slug)
		}
	}
	sort.Strings(slugs)
	return slugs
}
