package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrColumnNotFound is returned when the input header lacks the configured address column.
var ErrColumnNotFound = errors.New("address column not found in input header")

const utf8BOM = "\ufeff"

// CSVInput reads addresses from one named column of a CSV file with a header row.
type CSVInput struct {
	path   string
	column string
	log    *slog.Logger
}

// NewCSVInput creates a reader for the given file and column.
func NewCSVInput(path, column string, log *slog.Logger) *CSVInput {
	return &CSVInput{path: path, column: column, log: log}
}

// ReadAddresses returns the column values in file order, untrimmed.
// Rows too short to contain the column yield an empty address.
func (in *CSVInput) ReadAddresses(ctx context.Context) ([]string, error) {
	file, err := os.Open(in.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read input header: %w: file is empty", ErrColumnNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read input header: %w", err)
	}

	idx := columnIndex(header, in.column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrColumnNotFound, in.column, in.path)
	}

	var addresses []string
	for {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		record, errRead := reader.Read()
		if errors.Is(errRead, io.EOF) {
			break
		}
		if errRead != nil {
			return nil, fmt.Errorf("failed to read input row: %w", errRead)
		}

		if idx < len(record) {
			addresses = append(addresses, record[idx])
		} else {
			addresses = append(addresses, "")
		}
	}

	in.log.DebugContext(ctx, "Input read", "path", in.path, "rows", len(addresses))

	return addresses, nil
}

func columnIndex(header []string, column string) int {
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		if name == column {
			return i
		}
	}

	return -1
}
