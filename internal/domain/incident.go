package domain

import "time"

// Column names expected in the source table.
const (
	ColumnDate             = "date"
	ColumnPlace            = "place"
	ColumnCompany          = "company"
	ColumnCompanyDomain    = "company_domain"
	ColumnAttackType       = "attack_type"
	ColumnConsequence      = "consequence"
	ColumnPerpetrator      = "perpetrator"
	ColumnAffiliateRelated = "Addcom_related"
	ColumnStateRelated     = "state_related"
)

// ExpectedColumns lists the source columns in their canonical order.
var ExpectedColumns = []string{
	ColumnDate,
	ColumnPlace,
	ColumnCompany,
	ColumnCompanyDomain,
	ColumnAttackType,
	ColumnConsequence,
	ColumnPerpetrator,
	ColumnAffiliateRelated,
	ColumnStateRelated,
}

// RawRecord is one row of the source table with every cell kept as text.
// Row is the 1-based data row number (the header is not counted).
type RawRecord struct {
	Row              int
	Date             string
	Place            string
	Company          string
	CompanyDomain    string
	AttackType       string
	Consequence      string
	Perpetrator      string
	AffiliateRelated string
	StateRelated     string
}

// RecordFromColumns builds a RawRecord from a column name → value lookup.
// Unknown columns are ignored and missing ones stay empty.
func RecordFromColumns(row int, get func(column string) string) RawRecord {
	return RawRecord{
		Row:              row,
		Date:             get(ColumnDate),
		Place:            get(ColumnPlace),
		Company:          get(ColumnCompany),
		CompanyDomain:    get(ColumnCompanyDomain),
		AttackType:       get(ColumnAttackType),
		Consequence:      get(ColumnConsequence),
		Perpetrator:      get(ColumnPerpetrator),
		AffiliateRelated: get(ColumnAffiliateRelated),
		StateRelated:     get(ColumnStateRelated),
	}
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Geo source labels recorded on each incident.
const (
	GeoSourceGeocoded = "geocoded"
	GeoSourceFallback = "fallback"
)

// Incident is the map-ready representation of a source row.
type Incident struct {
	ID                string  `json:"id"`
	DateRaw           string  `json:"date_raw"`
	DateISO           *string `json:"date_iso"`
	Place             string  `json:"place"`
	Company           string  `json:"company"`
	CompanyDomain     string  `json:"company_domain"`
	AttackType        string  `json:"attack_type"`
	Consequence       string  `json:"consequence"`
	Perpetrator       string  `json:"perpetrator"`
	AffiliateRelated  bool    `json:"affiliate_related"`
	StateRelated      bool    `json:"state_related"`
	IsSentinelCompany bool    `json:"is_sentinel_company"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	GeoSource         string  `json:"geo_source"`
	H3Cell            string  `json:"h3_cell,omitempty"`
}

// Dataset is everything the output document needs.
type Dataset struct {
	Title       string
	Region      string
	Incidents   []Incident
	AttackTypes []string
	DateFrom    string // default lower bound of the date filter, YYYY-MM-DD
	DateTo      string // default upper bound of the date filter, YYYY-MM-DD
	Fallback    Coordinates
	GeneratedAt time.Time
}
