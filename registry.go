package tsomap

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TsoEntry identifies one transmission system operator. Country, ISO code
// and operator name each determine the entry on their own.
type TsoEntry struct {
	Country  string `json:"Country" yaml:"Country" validate:"required"`
	ISOCode  string `json:"Acronym" yaml:"Acronym" validate:"required,alpha,min=2,max=3"`
	Operator string `json:"Company" yaml:"Company" validate:"required"`
}

// String renders the entry the way neighbor listings show it.
func (e TsoEntry) String() string {
	return e.ISOCode + " - " + e.Country + " (" + e.Operator + ")"
}

// Registry is the immutable TSO table in source order.
type Registry struct {
	entries    []TsoEntry
	byCountry  map[string]int
	byISO      map[string]int
	byOperator map[string]int
}

// NewRegistry validates entries and indexes them by each identifying
// field. Duplicates in any field are rejected, since a selection on that
// field would otherwise be ambiguous.
func NewRegistry(entries []TsoEntry) (*Registry, error) {
	r := &Registry{
		entries:    entries,
		byCountry:  make(map[string]int, len(entries)),
		byISO:      make(map[string]int, len(entries)),
		byOperator: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if err := formatValidationError(validate.Struct(e)); err != nil {
			return nil, fmt.Errorf("registry entry %d: %w", i, err)
		}
		if _, dup := r.byISO[e.ISOCode]; dup {
			return nil, fmt.Errorf("%w: registry code %q", ErrDuplicateISO, e.ISOCode)
		}
		if j, dup := r.byCountry[e.Country]; dup {
			return nil, fmt.Errorf("registry entries %d and %d share country %q", j, i, e.Country)
		}
		if j, dup := r.byOperator[e.Operator]; dup {
			return nil, fmt.Errorf("registry entries %d and %d share operator %q", j, i, e.Operator)
		}
		r.byISO[e.ISOCode] = i
		r.byCountry[e.Country] = i
		r.byOperator[e.Operator] = i
	}
	return r, nil
}

// Entries returns all entries in source order.
func (r *Registry) Entries() []TsoEntry { return r.entries }

// Len returns the number of entries.
func (r *Registry) Len() int { return len(r.entries) }

// ByISO returns the entry for an ISO code.
func (r *Registry) ByISO(iso string) (TsoEntry, bool) {
	return r.lookup(r.byISO, iso)
}

// ByCountry returns the entry for a country name.
func (r *Registry) ByCountry(country string) (TsoEntry, bool) {
	return r.lookup(r.byCountry, country)
}

// ByOperator returns the entry for an operator name.
func (r *Registry) ByOperator(operator string) (TsoEntry, bool) {
	return r.lookup(r.byOperator, operator)
}

func (r *Registry) lookup(idx map[string]int, key string) (TsoEntry, bool) {
	i, ok := idx[key]
	if !ok {
		return TsoEntry{}, false
	}
	return r.entries[i], true
}

// values returns one field of every entry, in source order.
func (r *Registry) values(f Field) []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = f.of(e)
	}
	return out
}

// loadRegistry reads the TSO table. The format follows the file extension:
// .csv, .json, .yaml or .yml.
func loadRegistry(path string) (*Registry, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening registry file: %w", err)
	}
	defer fh.Close()

	var entries []TsoEntry
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		entries, err = parseRegistryCSV(fh)
	case ".json":
		entries, err = parseRegistryJSON(fh)
	case ".yaml", ".yml":
		entries, err = parseRegistryYAML(fh)
	default:
		err = fmt.Errorf("unsupported registry format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing registry file %s: %w", path, err)
	}
	for i := range entries {
		entries[i] = trimEntry(entries[i])
	}
	return NewRegistry(entries)
}

func trimEntry(e TsoEntry) TsoEntry {
	return TsoEntry{
		Country:  strings.TrimSpace(e.Country),
		ISOCode:  toUpper(strings.TrimSpace(e.ISOCode)),
		Operator: strings.TrimSpace(e.Operator),
	}
}

// registryRow is the wire shape shared by the JSON and YAML registries;
// older exports call the operator column "Name" instead of "Company".
type registryRow struct {
	Country string `json:"Country" yaml:"Country"`
	Acronym string `json:"Acronym" yaml:"Acronym"`
	Company string `json:"Company" yaml:"Company"`
	Name    string `json:"Name" yaml:"Name"`
}

func (row registryRow) entry() TsoEntry {
	op := row.Company
	if op == "" {
		op = row.Name
	}
	return TsoEntry{Country: row.Country, ISOCode: row.Acronym, Operator: op}
}

func parseRegistryJSON(r io.Reader) ([]TsoEntry, error) {
	var rows []registryRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, err
	}
	entries := make([]TsoEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.entry()
	}
	return entries, nil
}

func parseRegistryYAML(r io.Reader) ([]TsoEntry, error) {
	var rows []registryRow
	if err := yaml.NewDecoder(r).Decode(&rows); err != nil {
		return nil, err
	}
	entries := make([]TsoEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.entry()
	}
	return entries, nil
}

func parseRegistryCSV(r io.Reader) ([]TsoEntry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	country, okC := col["Country"]
	acronym, okA := col["Acronym"]
	operator, okO := col["Company"]
	if !okO {
		operator, okO = col["Name"]
	}
	if !okC || !okA || !okO {
		return nil, errors.New("header must contain Country, Acronym and Company (or Name)")
	}

	var entries []TsoEntry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, TsoEntry{
			Country:  rec[country],
			ISOCode:  rec[acronym],
			Operator: rec[operator],
		})
	}
	return entries, nil
}
