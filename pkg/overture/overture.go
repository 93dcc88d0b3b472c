// Package overture downloads and joins the Overture Maps divisions theme,
// producing one AreaRecord per division area that carries a Wikidata QID.
package overture

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

const s3Base = "s3://overturemaps-us-west-2/release/%s/theme=divisions"

// AreaRecord is one raw geometry association from the divisions join.
// Several records may share a WikidataID; dedup happens downstream.
type AreaRecord struct {
	WikidataID string
	Subtype    string
	Name       string
	ParentName string
	Geometry   []byte // WKB
	ByteSize   int
}

// Fetcher caches Overture parquet partitions on disk and runs the
// divisions join through an in-memory DuckDB instance.
type Fetcher struct {
	db       *sql.DB
	cacheDir string
}

func NewFetcher(cacheDir string) (*Fetcher, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("error opening duckdb: %v", err)
	}
	if _, err := db.Exec("INSTALL httpfs; LOAD httpfs; SET s3_region='us-west-2';"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error configuring duckdb httpfs: %v", err)
	}
	return &Fetcher{db: db, cacheDir: cacheDir}, nil
}

func (f *Fetcher) Close() error {
	return f.db.Close()
}

// EnsureParquet downloads one divisions type for the given release to the
// local cache unless it is already present, and returns the cached path.
func (f *Fetcher) EnsureParquet(release, typeName string) (string, error) {
	cachePath := filepath.Join(f.cacheDir, fmt.Sprintf("%s_%s.parquet", typeName, release))
	if _, err := os.Stat(cachePath); err == nil {
		log.Printf("Using cached %s", cachePath)
		return cachePath, nil
	}
	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return "", fmt.Errorf("error creating cache directory %s: %v", f.cacheDir, err)
	}
	s3Path := fmt.Sprintf(s3Base+"/type=%s/*", release, typeName)
	log.Printf("Downloading %s from %s", typeName, release)
	_, err := f.db.Exec(fmt.Sprintf(
		"COPY (SELECT * FROM read_parquet('%s', hive_partitioning=true)) TO '%s' (FORMAT PARQUET)",
		s3Path, cachePath,
	))
	if err != nil {
		return "", fmt.Errorf("error downloading %s for release %s: %v", typeName, release, err)
	}
	log.Printf("Saved to %s", cachePath)
	return cachePath, nil
}

// LoadAreas joins division_area with division (and the parent division for
// disambiguation metadata) and returns every area with a Wikidata QID.
func (f *Fetcher) LoadAreas(divisionPath, areaPath string) ([]AreaRecord, error) {
	rows, err := f.db.Query(fmt.Sprintf(`
        SELECT d.wikidata, d.subtype,
               COALESCE(d.names.common['en'], d.names."primary") AS en_name,
               COALESCE(p.names.common['en'], p.names."primary") AS parent_name,
               a.geometry, octet_length(a.geometry) AS geom_size
        FROM read_parquet('%s') a
        JOIN read_parquet('%s') d ON a.division_id = d.id
        LEFT JOIN read_parquet('%s') p ON d.parent_division_id = p.id
        WHERE d.wikidata IS NOT NULL`,
		areaPath, divisionPath, divisionPath,
	))
	if err != nil {
		return nil, fmt.Errorf("error querying division areas: %v", err)
	}
	defer rows.Close()

	var records []AreaRecord
	for rows.Next() {
		var r AreaRecord
		var name, parent sql.NullString
		if err := rows.Scan(&r.WikidataID, &r.Subtype, &name, &parent, &r.Geometry, &r.ByteSize); err != nil {
			return nil, fmt.Errorf("error scanning division area: %v", err)
		}
		r.Name = name.String
		r.ParentName = parent.String
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading division areas: %v", err)
	}
	log.Printf("%d division areas with wikidata IDs", len(records))
	return records, nil
}
