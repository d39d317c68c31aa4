// Package domain models reported cyberattack incidents and the rules that
// turn a raw tabular row into a map-ready record.
//
// # Data Source
//
// Incidents come from a hand-curated spreadsheet, usually exported as CSV.
// Each row is one publicly reported attack against an organisation in the
// target region. All cells are treated as text; nothing is trusted to be
// well-formed.
//
// # Column Conventions
//
// Expected header names (see [ExpectedColumns]):
//
//	date, place, company, company_domain, attack_type, consequence,
//	perpetrator, Addcom_related, state_related
//
// Missing columns are backfilled as empty by the source adapter rather than
// rejected. Place names are frequently pasted with surrounding quotes
// ('Rotterdam' or "Den Haag"); those are stripped.
//
// Date format:
//
//	Mostly "Mon D" without a year, e.g. "Jan 17" or "17 jan.". Rows without
//	a year are assumed to fall in the configured default year. Full dates
//	("2024-03-05", "3/5/2024", "March 5, 2024") are also accepted. Numeric
//	forms are month-first. Anything else becomes an unknown date, which the
//	map shows only when "include events without a date" is ticked.
//
// Boolean flags:
//
//	"true", "1", "yes", "y" and "t" (any case) are true. Everything else,
//	including empty, is false.
//
// Sentinel company:
//
//	One organisation is singled out on the map (gold markers). A record is a
//	sentinel record when its company name equals the configured sentinel name
//	ignoring case and surrounding spaces. The "Addcom_related" column marks
//	incidents derived from the sentinel attack and maps to AffiliateRelated.
//
// # Coordinates
//
// Places are resolved through a persistent geocode cache (package geocache).
// A place that cannot be resolved, or an empty place, receives the fallback
// centroid so every record is drawn. See [AssignCoordinates].
//
// # ID Generation
//
// Incident IDs are deterministic UUIDv5 values over the source row and its
// identifying columns, so regenerating the map from the same input keeps
// marker IDs stable. See [IncidentID].
package domain
