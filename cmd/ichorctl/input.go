package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ichor/ichor/pkg/units"

	"go.uber.org/zap"
)

// openInput returns stdin for no argument or "-".
func openInput(stdin io.Reader, args []string) (io.Reader, func() error, error) {
	if len(args) == 0 || args[0] == "-" {
		return stdin, func() error { return nil }, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open readings: %w", err)
	}
	return f, f.Close, nil
}

// readReadings parses the first column of each record as a reading in unit.
// Cells may carry their own unit ("5.5 mmol/L"), in which case they are converted.
// A non-numeric first record is treated as a header.
func readReadings(r io.Reader, unit units.Unit, logger *zap.Logger) ([]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var readings []float64
	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read readings: %w", err)
		}

		cell := strings.TrimSpace(record[0])
		if cell == "" {
			continue
		}

		value, err := parseCell(cell, unit)
		if err != nil {
			if line == 1 && len(readings) == 0 {
				logger.Debug("skipping header", zap.Strings("record", record))
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		readings = append(readings, value)
	}

	logger.Debug("read readings", zap.Int("count", len(readings)), zap.String("unit", string(unit)))
	return readings, nil
}

func parseCell(cell string, unit units.Unit) (float64, error) {
	if v, err := strconv.ParseFloat(cell, 64); err == nil {
		return v, nil
	}
	v, from, err := units.Parse(cell)
	if err != nil {
		return 0, err
	}
	return units.Convert(v, from, unit)
}
