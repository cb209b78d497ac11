// Package catalog loads the dimension data that parameterizes generation:
// locations, salespeople, products, and the product-location assortment.
// Files are semicolon-delimited CSV with a header row, one file per entity.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Catalog file names inside the catalog directory.
const (
	LocationsFile        = "locations.csv"
	SalespeopleFile      = "salespeople.csv"
	ProductsFile         = "products.csv"
	ProductLocationsFile = "product_locations.csv"
)

// ErrNotFound is returned by lookups for ids absent from the catalog.
var ErrNotFound = errors.New("not found in catalog")

// Location is one selling location (dimension row).
type Location struct {
	ID             int
	Name           string
	OpenHoursStart int
	OpenHoursEnd   int
}

// Salesperson is one salesperson, assigned to a single location.
type Salesperson struct {
	ID                int
	Name              string
	LocationID        int
	PerformanceWeight float64
	WorkingHoursStart int
	WorkingHoursEnd   int
}

// Product is one sellable product.
type Product struct {
	ID         int
	Name       string
	CategoryID int
	Price      float64
}

// ProductLocation links a product to a location's assortment.
type ProductLocation struct {
	LocationID int
	ProductID  int
}

// Catalog is the loaded dimension set with id-keyed indexes.
type Catalog struct {
	Locations        []Location
	Salespeople      []Salesperson
	Products         []Product
	ProductLocations []ProductLocation

	locationByID    map[int]Location
	salespersonByID map[int]Salesperson
	productByID     map[int]Product
}

// Load reads every catalog file from dir and indexes the rows.
func Load(dir string) (*Catalog, error) {
	c := &Catalog{
		locationByID:    make(map[int]Location),
		salespersonByID: make(map[int]Salesperson),
		productByID:     make(map[int]Product),
	}

	if err := loadRows(filepath.Join(dir, LocationsFile), mapLocationRow, func(l Location) {
		c.Locations = append(c.Locations, l)
		c.locationByID[l.ID] = l
	}); err != nil {
		return nil, err
	}
	if err := loadRows(filepath.Join(dir, SalespeopleFile), mapSalespersonRow, func(s Salesperson) {
		c.Salespeople = append(c.Salespeople, s)
		c.salespersonByID[s.ID] = s
	}); err != nil {
		return nil, err
	}
	if err := loadRows(filepath.Join(dir, ProductsFile), mapProductRow, func(p Product) {
		c.Products = append(c.Products, p)
		c.productByID[p.ID] = p
	}); err != nil {
		return nil, err
	}
	if err := loadRows(filepath.Join(dir, ProductLocationsFile), mapProductLocationRow, func(pl ProductLocation) {
		c.ProductLocations = append(c.ProductLocations, pl)
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// row is one CSV record with header-name access.
type row struct {
	header map[string]int
	fields []string
}

func (r row) text(col string) (string, error) {
	idx, ok := r.header[col]
	if !ok {
		return "", fmt.Errorf("missing column %q", col)
	}
	if idx >= len(r.fields) {
		return "", fmt.Errorf("row too short for column %q", col)
	}
	return r.fields[idx], nil
}

func (r row) intVal(col string) (int, error) {
	s, err := r.text(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	return v, nil
}

func (r row) floatVal(col string) (float64, error) {
	s, err := r.text(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	return v, nil
}

func mapLocationRow(r row) (Location, error) {
	var l Location
	var err error
	if l.ID, err = r.intVal("location_id"); err != nil {
		return l, err
	}
	if l.Name, err = r.text("location_name"); err != nil {
		return l, err
	}
	if l.OpenHoursStart, err = r.intVal("open_hours_start"); err != nil {
		return l, err
	}
	if l.OpenHoursEnd, err = r.intVal("open_hours_end"); err != nil {
		return l, err
	}
	return l, nil
}

func mapSalespersonRow(r row) (Salesperson, error) {
	var s Salesperson
	var err error
	if s.ID, err = r.intVal("person_id"); err != nil {
		return s, err
	}
	if s.Name, err = r.text("person_name"); err != nil {
		return s, err
	}
	if s.LocationID, err = r.intVal("location_id"); err != nil {
		return s, err
	}
	if s.PerformanceWeight, err = r.floatVal("performance_weight"); err != nil {
		return s, err
	}
	if s.WorkingHoursStart, err = r.intVal("working_hours_start"); err != nil {
		return s, err
	}
	if s.WorkingHoursEnd, err = r.intVal("working_hours_end"); err != nil {
		return s, err
	}
	return s, nil
}

func mapProductRow(r row) (Product, error) {
	var p Product
	var err error
	if p.ID, err = r.intVal("product_id"); err != nil {
		return p, err
	}
	if p.Name, err = r.text("product_name"); err != nil {
		return p, err
	}
	if p.CategoryID, err = r.intVal("product_category_id"); err != nil {
		return p, err
	}
	if p.Price, err = r.floatVal("product_price"); err != nil {
		return p, err
	}
	return p, nil
}

func mapProductLocationRow(r row) (ProductLocation, error) {
	var pl ProductLocation
	var err error
	if pl.LocationID, err = r.intVal("location_id"); err != nil {
		return pl, err
	}
	if pl.ProductID, err = r.intVal("product_id"); err != nil {
		return pl, err
	}
	return pl, nil
}

// loadRows streams one semicolon-delimited CSV file through a row mapper.
func loadRows[T any](path string, mapRow func(row) (T, error), add func(T)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.TrimLeadingSpace = true

	headerFields, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", filepath.Base(path), err)
	}
	header := make(map[string]int, len(headerFields))
	for i, name := range headerFields {
		header[name] = i
	}

	line := 1
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		line++
		v, err := mapRow(row{header: header, fields: fields})
		if err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
		add(v)
	}
}

// LocationName returns the name for a location id.
func (c *Catalog) LocationName(locationID int) (string, error) {
	l, ok := c.locationByID[locationID]
	if !ok {
		return "", fmt.Errorf("location id %d: %w", locationID, ErrNotFound)
	}
	return l.Name, nil
}

// SalespersonName returns the name for a salesperson id.
func (c *Catalog) SalespersonName(personID int) (string, error) {
	s, ok := c.salespersonByID[personID]
	if !ok {
		return "", fmt.Errorf("person id %d: %w", personID, ErrNotFound)
	}
	return s.Name, nil
}

// OpenHours returns a location's open-hours window.
func (c *Catalog) OpenHours(locationID int) (start, end int, err error) {
	l, ok := c.locationByID[locationID]
	if !ok {
		return 0, 0, fmt.Errorf("location id %d: %w", locationID, ErrNotFound)
	}
	return l.OpenHoursStart, l.OpenHoursEnd, nil
}

// SalespeopleByLocation returns the salespeople assigned to a location, in
// ascending id order. An unknown location id is an error; a known location
// with nobody assigned returns an empty slice.
func (c *Catalog) SalespeopleByLocation(locationID int) ([]Salesperson, error) {
	if _, ok := c.locationByID[locationID]; !ok {
		return nil, fmt.Errorf("location id %d: %w", locationID, ErrNotFound)
	}
	var out []Salesperson
	for _, s := range c.Salespeople {
		if s.LocationID == locationID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ProductIDsByLocation returns the product assortment of a location, in
// ascending id order.
func (c *Catalog) ProductIDsByLocation(locationID int) ([]int, error) {
	if _, ok := c.locationByID[locationID]; !ok {
		return nil, fmt.Errorf("location id %d: %w", locationID, ErrNotFound)
	}
	var out []int
	for _, pl := range c.ProductLocations {
		if pl.LocationID == locationID {
			out = append(out, pl.ProductID)
		}
	}
	sort.Ints(out)
	return out, nil
}

// Validate runs referential checks across the loaded files: duplicate ids,
// salespeople or assortment rows pointing at unknown locations or products,
// and locations with no assortment. All findings are returned together.
func (c *Catalog) Validate() []error {
	var problems []error

	seenLoc := make(map[int]bool)
	for _, l := range c.Locations {
		if seenLoc[l.ID] {
			problems = append(problems, fmt.Errorf("duplicate location id %d", l.ID))
		}
		seenLoc[l.ID] = true
	}
	seenPerson := make(map[int]bool)
	for _, s := range c.Salespeople {
		if seenPerson[s.ID] {
			problems = append(problems, fmt.Errorf("duplicate person id %d", s.ID))
		}
		seenPerson[s.ID] = true
		if !seenLoc[s.LocationID] {
			problems = append(problems, fmt.Errorf("person %d assigned to unknown location %d", s.ID, s.LocationID))
		}
		if s.PerformanceWeight < 0 {
			problems = append(problems, fmt.Errorf("person %d has negative performance weight", s.ID))
		}
	}
	seenProduct := make(map[int]bool)
	for _, p := range c.Products {
		if seenProduct[p.ID] {
			problems = append(problems, fmt.Errorf("duplicate product id %d", p.ID))
		}
		seenProduct[p.ID] = true
	}

	assorted := make(map[int]bool)
	for _, pl := range c.ProductLocations {
		if !seenLoc[pl.LocationID] {
			problems = append(problems, fmt.Errorf("assortment row points at unknown location %d", pl.LocationID))
		}
		if !seenProduct[pl.ProductID] {
			problems = append(problems, fmt.Errorf("assortment row points at unknown product %d", pl.ProductID))
		}
		assorted[pl.LocationID] = true
	}
	for _, l := range c.Locations {
		if !assorted[l.ID] {
			problems = append(problems, fmt.Errorf("location %d has no products assigned", l.ID))
		}
	}
	return problems
}
