package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/UnknownOlympus/addr2coo/internal/models"
	"github.com/jszwec/csvutil"
)

// csvRow is the on-disk layout of the output file.
type csvRow struct {
	Address   string   `csv:"address"`
	Longitude *float64 `csv:"longitude"`
	Latitude  *float64 `csv:"latitude"`
}

// CSVStore keeps the output set in a CSV file with the columns address, longitude, latitude.
//
// Save appends to the file as it was last loaded when the records start with the loaded rows,
// so those rows keep their exact bytes and any extra columns. Otherwise the file is rewritten
// with the three known columns.
type CSVStore struct {
	path   string
	log    *slog.Logger
	loaded *csvSnapshot
}

// csvSnapshot is the output file as read by the last Load.
type csvSnapshot struct {
	raw       []byte
	header    []string
	addresses []string
}

// NewCSVStore creates a store backed by the file at path. The file does not have to exist.
func NewCSVStore(path string, log *slog.Logger) *CSVStore {
	return &CSVStore{path: path, log: log}
}

// Load reads every row of the output file in order.
// A missing file yields an empty, not found, output set.
func (s *CSVStore) Load(ctx context.Context) (models.OutputSet, error) {
	s.loaded = nil

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.InfoContext(ctx, "Output file does not exist yet, starting empty", "path", s.path)
		return models.OutputSet{Found: false}, nil
	}
	if err != nil {
		return models.OutputSet{}, fmt.Errorf("failed to open output file: %w", err)
	}

	records, header, err := decodeRows(bytes.NewReader(raw))
	if err != nil {
		return models.OutputSet{}, fmt.Errorf("failed to read output file %s: %w", s.path, err)
	}

	addresses := make([]string, len(records))
	for i, rec := range records {
		addresses[i] = rec.Address
	}
	s.loaded = &csvSnapshot{raw: raw, header: header, addresses: addresses}

	s.log.DebugContext(ctx, "Output loaded", "path", s.path, "rows", len(records))

	return models.OutputSet{Records: records, Found: true}, nil
}

func decodeRows(r io.Reader) ([]models.AddressRecord, []string, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	dec.DisallowMissingColumns = true

	var records []models.AddressRecord
	for {
		var row csvRow
		if err = dec.Decode(&row); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, nil, err
		}

		records = append(records, models.AddressRecord{
			Address:   row.Address,
			Longitude: row.Longitude,
			Latitude:  row.Latitude,
		})
	}

	return records, dec.Header(), nil
}

// Save rewrites the output file with records.
// The rows are written to a temporary file in the same directory which then replaces the
// output, so an interrupted write leaves the previous file intact.
func (s *CSVStore) Save(ctx context.Context, records []models.AddressRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if added, ok := s.loaded.appendable(records); ok {
		err = s.loaded.appendRows(tmp, added)
	} else {
		err = encodeRows(tmp, records)
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output rows: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary output file: %w", err)
	}

	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace output file: %w", err)
	}

	s.loaded = nil
	s.log.DebugContext(ctx, "Output saved", "path", s.path, "rows", len(records))

	return nil
}

func encodeRows(w io.Writer, records []models.AddressRecord) error {
	writer := csv.NewWriter(w)
	enc := csvutil.NewEncoder(writer)

	if err := enc.EncodeHeader(csvRow{}); err != nil {
		return err
	}

	for _, rec := range records {
		row := csvRow{Address: rec.Address, Longitude: rec.Longitude, Latitude: rec.Latitude}
		if err := enc.Encode(row); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

// appendable reports whether records begin with the loaded rows and returns the rest.
func (snap *csvSnapshot) appendable(records []models.AddressRecord) ([]models.AddressRecord, bool) {
	if snap == nil || len(snap.header) == 0 || len(records) < len(snap.addresses) {
		return nil, false
	}

	for i, address := range snap.addresses {
		if records[i].Address != address {
			return nil, false
		}
	}

	return records[len(snap.addresses):], true
}

// appendRows copies the loaded file verbatim and adds records in its column order.
// Columns other than address, longitude and latitude are left empty.
func (snap *csvSnapshot) appendRows(w io.Writer, records []models.AddressRecord) error {
	raw := snap.raw
	if len(raw) > 0 && raw[len(raw)-1] != '\n' {
		raw = append(bytes.Clone(raw), '\n')
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	row := make([]string, len(snap.header))
	for _, rec := range records {
		for i, column := range snap.header {
			switch column {
			case "address":
				row[i] = rec.Address
			case "longitude":
				row[i] = formatCoord(rec.Longitude)
			case "latitude":
				row[i] = formatCoord(rec.Latitude)
			default:
				row[i] = ""
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()

	return writer.Error()
}

// formatCoord matches the float layout csvutil uses for new files.
func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'G', -1, 64)
}
