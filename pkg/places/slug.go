package places

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ray1729/tidyshapes/pkg/overture"
)

// Entry is one slug's worth of output: the QID it stands for and the WKB
// geometry chosen for it by dedup.
type Entry struct {
	WikidataID string
	Geometry   []byte
}

var (
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	hyphenRun     = regexp.MustCompile(`-+`)
)

// Slugify converts a display name to an ASCII-only URL-friendly slug.
// Accented characters are decomposed and reduced to their ASCII skeleton;
// names with no ASCII content slugify to the empty string.
func Slugify(text string) string {
	decomposed := norm.NFKD.String(text)
	var b strings.Builder
	for _, r := range decomposed {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	s := strings.ToLower(strings.TrimSpace(b.String()))
	s = nonSlugChars.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// subtypeLabels maps Overture division subtypes to the label used when
// disambiguating colliding slugs. Subtypes without an entry use the raw tag.
var subtypeLabels = map[string]string{
	"locality":     "city",
	"region":       "state",
	"country":      "country",
	"county":       "county",
	"dependency":   "dependency",
	"localadmin":   "localadmin",
	"neighborhood": "neighborhood",
	"macrohood":    "macrohood",
	"microhood":    "microhood",
}

// SubtypeLabel returns the human label for a division subtype.
func SubtypeLabel(subtype string) string {
	if label, ok := subtypeLabels[subtype]; ok {
		return label
	}
	return subtype
}

// AssignSlugs gives every entry with a non-empty base slug a globally
// unique slug. When several entries share a base slug, the highest-QRank
// entry keeps the bare slug and the rest are suffixed: first with the
// subtype label, then with the slugified parent name, and finally with the
// lower-cased QID, which is unique by construction. Candidate slugs are
// checked against the whole result map, not just the current group.
func AssignSlugs(entries []overture.AreaRecord, popularity map[string]int) map[string]Entry {
	bySlug := make(map[string][]overture.AreaRecord)
	for _, e := range entries {
		if slug := Slugify(e.Name); slug != "" {
			bySlug[slug] = append(bySlug[slug], e)
		}
	}

	// Bare base slugs are claimed first so that no suffixed fallback can
	// be clobbered by another group's winner later on. Losers then probe
	// their candidates against the complete claimed set.
	result := make(map[string]Entry, len(bySlug))
	losers := make(map[string][]overture.AreaRecord)
	for baseSlug, group := range bySlug {
		if len(group) == 1 {
			result[baseSlug] = Entry{group[0].WikidataID, group[0].Geometry}
			continue
		}
		group := append([]overture.AreaRecord(nil), group...)
		sort.SliceStable(group, func(i, j int) bool {
			return popularity[group[i].WikidataID] > popularity[group[j].WikidataID]
		})
		result[baseSlug] = Entry{group[0].WikidataID, group[0].Geometry}
		losers[baseSlug] = group[1:]
	}

	for baseSlug, group := range losers {
		for _, e := range group {
			candidate := baseSlug + "-" + SubtypeLabel(e.Subtype)
			if _, taken := result[candidate]; !taken {
				result[candidate] = Entry{e.WikidataID, e.Geometry}
				continue
			}
			if parentSlug := Slugify(e.ParentName); parentSlug != "" {
				candidate = baseSlug + "-" + parentSlug
				if _, taken := result[candidate]; !taken {
					result[candidate] = Entry{e.WikidataID, e.Geometry}
					continue
				}
			}
			result[baseSlug+"-"+strings.ToLower(e.WikidataID)] = Entry{e.WikidataID, e.Geometry}
		}
	}
	return result
}
