// Command validate checks a catalog directory and, optionally, a SQLite
// database produced by the service. It verifies catalog referential
// integrity, and that persisted sales rows reference only catalog ids and
// fall inside each location's open hours.
//
// Usage:
//
//	go run ./cmd/validate -catalog ./catalog
//	go run ./cmd/validate -catalog ./catalog -db ./sales-synth.db -sales-table sales
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/sales-synth-service/internal/adapter/sqlite"
	"github.com/couchcryptid/sales-synth-service/internal/catalog"
	"github.com/couchcryptid/sales-synth-service/internal/domain"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	catalogDir := flag.String("catalog", "", "catalog directory to validate")
	dbPath := flag.String("db", "", "optional SQLite database to validate against the catalog")
	salesTable := flag.String("sales-table", "sales", "sales table name in the database")
	flag.Parse()

	if *catalogDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*catalogDir, *dbPath, *salesTable); code != 0 {
		os.Exit(code)
	}
}

func run(catalogDir, dbPath, salesTable string) int {
	fmt.Println("=== Catalog and Data Validation ===")
	fmt.Println()

	cat, err := catalog.Load(catalogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load catalog: %v\n", err)
		return 1
	}

	phases := []*phase{validateCatalog(cat)}
	if dbPath != "" {
		p, err := validateDatabase(cat, dbPath, salesTable)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		phases = append(phases, p)
	}

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-40s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateCatalog runs the catalog's own referential checks.
func validateCatalog(cat *catalog.Catalog) *phase {
	p := &phase{name: "Phase 1: Catalog Integrity"}
	for _, problem := range cat.Validate() {
		p.errorf("%v", problem)
	}
	return p
}

// validateDatabase reads the sales table and cross-references every row
// against the catalog.
func validateDatabase(cat *catalog.Catalog, dbPath, salesTable string) (*phase, error) {
	p := &phase{name: "Phase 2: Database Cross-Reference"}

	store, err := sqlite.Open(dbPath, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	exists, err := store.TableExists(ctx, salesTable)
	if err != nil {
		return nil, fmt.Errorf("check sales table: %w", err)
	}
	if !exists {
		p.errorf("sales table %q does not exist", salesTable)
		return p, nil
	}

	table, err := store.ReadTable(ctx, salesTable)
	if err != nil {
		return nil, fmt.Errorf("read sales table: %w", err)
	}

	cols := make(map[string]int, len(table.Columns))
	for i, c := range table.Columns {
		cols[c] = i
	}
	for _, required := range domain.SalesMergeKeys {
		if _, ok := cols[required]; !ok {
			p.errorf("sales table missing column %q", required)
		}
	}
	if !p.passed() {
		return p, nil
	}

	assortment := make(map[int]map[int]bool, len(cat.Locations))
	for _, loc := range cat.Locations {
		ids, err := cat.ProductIDsByLocation(loc.ID)
		if err != nil {
			continue
		}
		set := make(map[int]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		assortment[loc.ID] = set
	}

	for i, row := range table.Rows {
		checkSalesRow(p, cat, assortment, cols, i, row)
	}

	fmt.Printf("  checked %d sales rows\n", len(table.Rows))
	return p, nil
}

func checkSalesRow(p *phase, cat *catalog.Catalog, assortment map[int]map[int]bool, cols map[string]int, i int, row []any) {
	locID, ok := intCell(row[cols[domain.ColLocationID]])
	if !ok {
		p.errorf("row %d: location_id is not an integer", i)
		return
	}
	personID, ok := intCell(row[cols[domain.ColPersonID]])
	if !ok {
		p.errorf("row %d: person_id is not an integer", i)
		return
	}
	productID, ok := intCell(row[cols[domain.ColProductID]])
	if !ok {
		p.errorf("row %d: product_id is not an integer", i)
		return
	}

	if _, err := cat.LocationName(locID); err != nil {
		p.errorf("row %d: unknown location %d", i, locID)
		return
	}
	if _, err := cat.SalespersonName(personID); err != nil {
		p.errorf("row %d: unknown person %d", i, personID)
	}
	if !assortment[locID][productID] {
		p.errorf("row %d: product %d not in location %d assortment", i, productID, locID)
	}

	ts, ok := row[cols[domain.ColTimestamp]].(time.Time)
	if !ok {
		p.errorf("row %d: timestamp is not a time value", i)
		return
	}
	start, end, err := cat.OpenHours(locID)
	if err != nil {
		return
	}
	if !hourOpen(ts.UTC().Hour(), start, end) {
		p.errorf("row %d: timestamp %s outside open hours %d-%d of location %d",
			i, ts.UTC().Format(time.RFC3339), start, end, locID)
	}
}

// hourOpen mirrors the generator's half-open window, including the overnight
// wrap when start >= end.
func hourOpen(hour, start, end int) bool {
	if start >= end {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

func intCell(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
