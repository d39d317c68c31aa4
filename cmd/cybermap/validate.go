package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/cyberattack-map/internal/adapter/source"
	"github.com/couchcryptid/cyberattack-map/internal/domain"
	"github.com/couchcryptid/cyberattack-map/internal/geocache"
)

// errValidationFailed is returned by validate --strict when a phase fails.
var errValidationFailed = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCommand(a *app) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the input table and geocode cache without writing anything",
		Long: `Reads the input and the geocode cache and reports rows that would end up
at the fallback location or with an unknown date. Nothing is geocoded and
no file is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := source.Read(a.cfg.InputPath)
			if err != nil {
				return err
			}
			store := geocache.Open(a.cfg.CachePath, a.logger)

			phases := []*phase{
				validateColumns(table),
				validateDates(table.Records, a.cfg.DefaultYear),
				validatePlaces(table.Records),
				validateCache(table.Records, store),
			}
			if !report(cmd.OutOrStdout(), len(table.Records), phases) && strict {
				return errValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any check fails")
	return cmd
}

func validateColumns(t *source.Table) *phase {
	p := &phase{name: "Input columns"}
	for _, col := range t.Missing {
		p.errorf("missing column %q", col)
	}
	return p
}

func validateDates(records []domain.RawRecord, year int) *phase {
	p := &phase{name: "Dates"}
	for _, rec := range records {
		raw := strings.TrimSpace(rec.Date)
		if _, ok := domain.ParseDate(raw, year); !ok {
			p.errorf("row %d: unparseable date %q", rec.Row, raw)
		}
	}
	return p
}

func validatePlaces(records []domain.RawRecord) *phase {
	p := &phase{name: "Places"}
	for _, rec := range records {
		if domain.PlaceKey(domain.NormalizeRecord(rec).Place) == "" {
			p.errorf("row %d: empty place", rec.Row)
		}
	}
	return p
}

func validateCache(records []domain.RawRecord, store *geocache.Store) *phase {
	p := &phase{name: "Geocode cache"}
	places := make([]string, len(records))
	for i, rec := range records {
		places[i] = domain.NormalizeRecord(rec).Place
	}
	for _, place := range geocache.DistinctPlaces(places) {
		coords, ok := store.Get(domain.PlaceKey(place))
		switch {
		case !ok:
			p.errorf("%s: not cached, will be looked up", place)
		case coords == nil:
			p.errorf("%s: marked unresolvable, will use the fallback location", place)
		}
	}
	return p
}

// report prints a summary table followed by the details of failed phases and
// reports whether every phase passed.
func report(w io.Writer, rows int, phases []*phase) bool {
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d issues)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-20s %s\n", p.name, status)
	}
	fmt.Fprintf(w, "\nRecords: %d\n", rows)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
	} else {
		fmt.Fprintln(w, "\nValidation found issues.")
	}
	return allPassed
}
