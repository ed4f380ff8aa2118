package stations

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rubiojr/fuelroute/internal/errs"
)

const (
	colOPISID  = "opis truckstop id"
	colName    = "truckstop name"
	colAddress = "address"
	colCity    = "city"
	colState   = "state"
	colRackID  = "rack id"
	colPrice   = "retail price"
)

var requiredColumns = []string{colName, colAddress, colCity, colState, colPrice}

// sourceRow is one CSV row before geocoding. Price is nil when the cell is
// empty or not a number.
type sourceRow struct {
	station Station
	price   *float64
}

// geocodeQuery is the free text address sent to the geocoder.
func (r sourceRow) geocodeQuery() string {
	return fmt.Sprintf("%s, %s, %s, USA", r.station.Address, r.station.City, r.station.State)
}

func readSourceFile(path string) ([]sourceRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readSource(f)
}

func readSource(r io.Reader) ([]sourceRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: station source is empty", errs.ErrValidation)
		}
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: station source missing column %q", errs.ErrValidation, name)
		}
	}

	field := func(record []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []sourceRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading station row %d: %w", len(rows)+1, err)
		}

		row := sourceRow{
			station: Station{
				Name:    field(record, colName),
				Address: field(record, colAddress),
				City:    field(record, colCity),
				State:   field(record, colState),
			},
		}
		if id, err := strconv.ParseInt(field(record, colOPISID), 10, 64); err == nil {
			row.station.OPISID = id
		}
		if id, err := strconv.ParseInt(field(record, colRackID), 10, 64); err == nil {
			row.station.RackID = id
		}
		if price, err := ParseDecimal(field(record, colPrice)); err == nil {
			row.price = &price
		}
		rows = append(rows, row)
	}

	return rows, nil
}
