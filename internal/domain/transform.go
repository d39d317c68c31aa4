package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// yearRe detects an explicit four-digit year anywhere in a date cell.
	yearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	// ordinalRe strips English ordinal suffixes: "17th" -> "17".
	ordinalRe = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)

	// septRe maps the four-letter September abbreviation to one time.Parse knows.
	septRe = regexp.MustCompile(`(?i)\bsept\b`)

	// incidentNamespace scopes incident UUIDv5 values to this project.
	incidentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/couchcryptid/cyberattack-map/incident"))
)

// dateLayouts are tried in order after cleanup. Numeric forms are month-first;
// the day-first variants only match when the month-first reading is invalid.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"2/1/2006",
	"1-2-2006",
	"2-1-2006",
	"1 2 2006",
	"2 1 2006",
	"1/2 2006",
	"2/1 2006",
	"1-2 2006",
	"2-1 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Monday January 2 2006",
	"2006 Jan 2",
	"2006 January 2",
}

// BuildOptions controls how raw records are interpreted.
type BuildOptions struct {
	DefaultYear     int
	SentinelCompany string
}

// NormalizeRecord trims every cell and strips quotes pasted around place names.
func NormalizeRecord(rec RawRecord) RawRecord {
	rec.Date = strings.TrimSpace(rec.Date)
	rec.Place = strings.Trim(strings.TrimSpace(rec.Place), `'"`)
	rec.Company = strings.TrimSpace(rec.Company)
	rec.CompanyDomain = strings.TrimSpace(rec.CompanyDomain)
	rec.AttackType = strings.TrimSpace(rec.AttackType)
	rec.Consequence = strings.TrimSpace(rec.Consequence)
	rec.Perpetrator = strings.TrimSpace(rec.Perpetrator)
	rec.AffiliateRelated = strings.TrimSpace(rec.AffiliateRelated)
	rec.StateRelated = strings.TrimSpace(rec.StateRelated)
	return rec
}

// ParseBool interprets a spreadsheet flag cell.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "y", "t":
		return true
	default:
		return false
	}
}

// ParseDate turns a free-form date cell into an ISO date (YYYY-MM-DD).
// Cells without a four-digit year are read in defaultYear. The second return
// value is false when the cell is empty or unparseable.
func ParseDate(raw string, defaultYear int) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if !yearRe.MatchString(s) {
		s = s + " " + strconv.Itoa(defaultYear)
	}
	s = cleanDate(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}

// cleanDate drops punctuation and ordinal suffixes so a small set of layouts
// covers the variants found in hand-typed sheets.
func cleanDate(s string) string {
	s = strings.NewReplacer(",", " ", ".", " ").Replace(s)
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = septRe.ReplaceAllString(s, "Sep")
	return strings.Join(strings.Fields(s), " ")
}

// PlaceKey is the geocode cache key for a place name: trimmed, NFC-normalized
// and lower-cased. An empty place yields an empty key.
func PlaceKey(place string) string {
	place = strings.TrimSpace(place)
	if place == "" {
		return ""
	}
	return cases.Lower(language.Und).String(norm.NFC.String(place))
}

// IsSentinelCompany reports whether company names the configured sentinel
// organisation. An empty sentinel never matches.
func IsSentinelCompany(company, sentinel string) bool {
	sentinel = strings.ToLower(strings.TrimSpace(sentinel))
	if sentinel == "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(company)) == sentinel
}

// IncidentID derives a stable identifier for a normalized record.
func IncidentID(rec RawRecord) string {
	name := fmt.Sprintf("%d|%s|%s|%s|%s", rec.Row, rec.Date, rec.Place, rec.Company, rec.AttackType)
	return uuid.NewSHA1(incidentNamespace, []byte(name)).String()
}

// BuildIncident normalizes a raw record and derives every attribute except
// coordinates, which are set later by AssignCoordinates.
func BuildIncident(rec RawRecord, opts BuildOptions) Incident {
	rec = NormalizeRecord(rec)

	inc := Incident{
		ID:                IncidentID(rec),
		DateRaw:           rec.Date,
		Place:             rec.Place,
		Company:           rec.Company,
		CompanyDomain:     rec.CompanyDomain,
		AttackType:        rec.AttackType,
		Consequence:       rec.Consequence,
		Perpetrator:       rec.Perpetrator,
		AffiliateRelated:  ParseBool(rec.AffiliateRelated),
		StateRelated:      ParseBool(rec.StateRelated),
		IsSentinelCompany: IsSentinelCompany(rec.Company, opts.SentinelCompany),
	}
	if iso, ok := ParseDate(rec.Date, opts.DefaultYear); ok {
		inc.DateISO = &iso
	}
	return inc
}

// AttackTypes returns the distinct non-empty attack categories, sorted.
func AttackTypes(incidents []Incident) []string {
	seen := make(map[string]struct{}, len(incidents))
	types := make([]string, 0)
	for _, inc := range incidents {
		if inc.AttackType == "" {
			continue
		}
		if _, ok := seen[inc.AttackType]; ok {
			continue
		}
		seen[inc.AttackType] = struct{}{}
		types = append(types, inc.AttackType)
	}
	slices.Sort(types)
	return types
}

// DatasetOptions describes the presentation settings of a generated map.
type DatasetOptions struct {
	Title    string
	Region   string
	Year     int
	Fallback Coordinates
}

// NewDataset assembles the document model. An empty title is derived from
// the region and year.
func NewDataset(incidents []Incident, opts DatasetOptions) Dataset {
	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("Distribution of Cyberattacks in %s in %d", opts.Region, opts.Year)
	}
	return Dataset{
		Title:       title,
		Region:      opts.Region,
		Incidents:   incidents,
		AttackTypes: AttackTypes(incidents),
		DateFrom:    fmt.Sprintf("%04d-01-01", opts.Year),
		DateTo:      fmt.Sprintf("%04d-12-31", opts.Year),
		Fallback:    opts.Fallback,
		GeneratedAt: clock.Now().UTC(),
	}
}
