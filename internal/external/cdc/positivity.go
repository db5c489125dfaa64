package cdc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/logger"
)

// Column headers of the tracker's positivity table and the positions used
// when a header is absent
const (
	headerState      = "State/Territory"
	headerPositivity = "Test positivity (%) in past week"

	fallbackStateIdx      = 0
	fallbackPositivityIdx = 2
)

// ExtractPositivity renders the tracker page and returns one record per
// state. A page without a table yields no records and no error.
func (c *Client) ExtractPositivity(ctx context.Context) ([]contracts.Record, error) {
	html, err := c.renderer.Render(ctx, c.covidURL)
	if err != nil {
		return nil, fmt.Errorf("failed to render COVID tracker: %w", err)
	}

	records, err := ParsePositivity(html, c.logger)
	if errors.Is(err, ErrTableNotFound) {
		c.logger.WithField("url", c.covidURL).Warn("No table found in the rendered tracker page")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.logger.WithField("records", len(records)).Info("Extracted COVID positivity")
	return records, nil
}

// ParsePositivity reads the first table of the rendered tracker page.
// Unparseable positivity values become 0.0.
func ParsePositivity(html string, log *logger.Logger) ([]contracts.Record, error) {
	if log == nil {
		log = logger.Nop()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, ErrTableNotFound
	}

	rows := table.Find("tr")
	if rows.Length() == 0 {
		return nil, nil
	}

	header := rows.First()
	stateIdx, positivityIdx := fallbackStateIdx, fallbackPositivityIdx
	header.Find("th, td").Each(func(i int, cell *goquery.Selection) {
		switch strings.TrimSpace(cell.Text()) {
		case headerState:
			stateIdx = i
		case headerPositivity:
			positivityIdx = i
		}
	})

	need := stateIdx + 1
	if positivityIdx+1 > need {
		need = positivityIdx + 1
	}

	var records []contracts.Record
	rows.Slice(1, rows.Length()).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < need {
			return
		}

		region := strings.TrimSpace(cells.Eq(stateIdx).Text())
		if region == "" {
			return
		}

		raw := strings.TrimSpace(cells.Eq(positivityIdx).Text())
		v, err := contracts.ParseFloat("positivity", raw)
		if err != nil {
			log.WithError(err).WithField("region", region).Debug("Unparseable positivity, defaulting to 0.0")
		}
		value, _ := contracts.DefaultToZero.Apply(v, err)

		records = append(records, contracts.Record{
			Region: region,
			Value:  value,
			Period: contracts.PeriodPast4Weeks,
		})
	})

	return records, nil
}
