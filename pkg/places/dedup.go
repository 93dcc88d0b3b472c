// Package places collapses duplicate division records into one canonical
// record per Wikidata QID and assigns each a unique URL-safe slug.
package places

import (
	"sort"

	"github.com/ray1729/tidyshapes/pkg/overture"
)

// Dedup keeps one record per Wikidata QID: the one with the largest
// serialized geometry, which Overture uses as a precision proxy. Records
// whose QRank score (missing = 0) falls below threshold are dropped.
// On equal byte size the first record seen wins, so the choice follows
// the row source's iteration order.
func Dedup(records []overture.AreaRecord, popularity map[string]int, threshold int) map[string]overture.AreaRecord {
	best := make(map[string]overture.AreaRecord)
	for _, r := range records {
		if popularity[r.WikidataID] < threshold {
			continue
		}
		if prev, ok := best[r.WikidataID]; !ok || r.ByteSize > prev.ByteSize {
			best[r.WikidataID] = r
		}
	}
	return best
}

// Entries flattens a dedup result into a slice sorted by QID, giving the
// slug assigner a reproducible input order.
func Entries(best map[string]overture.AreaRecord) []overture.AreaRecord {
	entries := make([]overture.AreaRecord, 0, len(best))
	for _, r := range best {
		entries = append(entries, r)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].WikidataID < entries[j].WikidataID
	})
	return entries
}
