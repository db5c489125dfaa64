package cdc

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/httputil"
	"github.com/healthdash/backend/pkg/logger"
)

// RSV export columns
const (
	columnState    = "State"
	columnRate     = "Cumulative Rate"
	columnWeekDate = "Week ending date"
)

// ExtractRSV downloads the RSV export and parses it while streaming
func (c *Client) ExtractRSV(ctx context.Context) ([]contracts.Record, error) {
	resp, err := c.httpClient.Get(ctx, c.rsvURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download RSV data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, URL: c.rsvURL}
	}

	records, err := ParseRSV(resp.Body, c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.WithField("records", len(records)).Info("Parsed RSV data")
	return records, nil
}

// ParseRSV reads the State, Cumulative Rate and Week ending date columns.
// The period is kept verbatim; unparseable rates become 0.0 and rows
// shorter than the header are skipped.
func ParseRSV(r io.Reader, log *logger.Logger) ([]contracts.Record, error) {
	if log == nil {
		log = logger.Nop()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read RSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	stateIdx, ok1 := index[columnState]
	rateIdx, ok2 := index[columnRate]
	dateIdx, ok3 := index[columnWeekDate]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: need %q, %q and %q", ErrColumnMissing, columnState, columnRate, columnWeekDate)
	}
	width := len(header)

	var (
		records   []contracts.Record
		defaulted int
		skipped   int
		line      int
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read RSV row %d: %w", line, err)
		}

		if len(row) < width {
			skipped++
			continue
		}

		v, perr := contracts.ParseFloat("cumulative_rate", row[rateIdx])
		if perr != nil {
			defaulted++
		}
		value, _ := contracts.DefaultToZero.Apply(v, perr)

		records = append(records, contracts.Record{
			Region: strings.TrimSpace(row[stateIdx]),
			Value:  value,
			Period: row[dateIdx],
		})
	}

	if defaulted > 0 || skipped > 0 {
		log.WithFields(map[string]interface{}{
			"defaulted": defaulted,
			"skipped":   skipped,
		}).Info("RSV rows defaulted to 0.0 or skipped")
	}

	return records, nil
}
