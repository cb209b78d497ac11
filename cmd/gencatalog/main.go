// Command gencatalog writes a sample catalog to a directory: locations,
// salespeople, products, and the product-location assortment, in the
// semicolon-delimited CSV layout the service loads at startup. It is meant
// for local development and for seeding test environments.
//
// Usage:
//
//	go run ./cmd/gencatalog -out ./catalog
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/sales-synth-service/internal/catalog"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for catalog CSV files")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{
			name:   catalog.LocationsFile,
			header: []string{"location_id", "location_name", "open_hours_start", "open_hours_end"},
			rows: [][]string{
				{"1", "Helsinki", "8", "20"},
				{"2", "Tampere", "9", "18"},
				{"3", "Rovaniemi", "10", "17"},
			},
		},
		{
			name: catalog.SalespeopleFile,
			header: []string{
				"person_id", "person_name", "location_id",
				"performance_weight", "working_hours_start", "working_hours_end",
			},
			rows: [][]string{
				{"10", "Aino Virtanen", "1", "1.2", "8", "16"},
				{"11", "Mikko Korhonen", "1", "0.9", "12", "20"},
				{"12", "Sofia Laine", "1", "1.0", "8", "20"},
				{"20", "Juhani Mäkinen", "2", "1.1", "9", "18"},
				{"21", "Emilia Nieminen", "2", "0.8", "9", "15"},
				{"30", "Olavi Järvinen", "3", "1.0", "10", "17"},
			},
		},
		{
			name:   catalog.ProductsFile,
			header: []string{"product_id", "product_name", "product_category_id", "product_price"},
			rows: [][]string{
				{"100", "Ice Cream Cone", "1", "3.50"},
				{"101", "Iced Coffee", "1", "4.20"},
				{"102", "Lemonade", "1", "3.00"},
				{"200", "Umbrella", "2", "12.90"},
				{"201", "Rain Poncho", "2", "8.50"},
			},
		},
		{
			name:   catalog.ProductLocationsFile,
			header: []string{"location_id", "product_id"},
			rows: [][]string{
				{"1", "100"}, {"1", "101"}, {"1", "102"}, {"1", "200"}, {"1", "201"},
				{"2", "100"}, {"2", "101"}, {"2", "200"},
				{"3", "101"}, {"3", "102"}, {"3", "201"},
			},
		},
	}

	for _, f := range files {
		path := filepath.Join(*out, f.name)
		if err := writeCSV(path, f.header, f.rows); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
		log.Printf("wrote %s: %d rows", path, len(f.rows))
	}

	// Load it back through the real loader so the fixture never drifts from
	// what the service accepts.
	cat, err := catalog.Load(*out)
	if err != nil {
		return fmt.Errorf("verify generated catalog: %w", err)
	}
	if problems := cat.Validate(); len(problems) > 0 {
		for _, p := range problems {
			log.Printf("catalog problem: %v", p)
		}
		return fmt.Errorf("generated catalog has %d problems", len(problems))
	}

	log.Printf("catalog verified: %d locations, %d salespeople, %d products, %d assortment rows",
		len(cat.Locations), len(cat.Salespeople), len(cat.Products), len(cat.ProductLocations))
	printAssortment(cat)
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func printAssortment(cat *catalog.Catalog) {
	for _, loc := range cat.Locations {
		people, _ := cat.SalespeopleByLocation(loc.ID)
		products, _ := cat.ProductIDsByLocation(loc.ID)
		ids := make([]string, len(products))
		for i, id := range products {
			ids[i] = strconv.Itoa(id)
		}
		log.Printf("  %s (id=%d, open %d-%d): %d salespeople, products %v",
			loc.Name, loc.ID, loc.OpenHoursStart, loc.OpenHoursEnd, len(people), ids)
	}
}
