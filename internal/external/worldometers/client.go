package worldometers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/logger"
)

// TableSelector is the per-state table on the US page. Its outer HTML is
// also the page's freshness token.
const TableSelector = "#usa_table_countries_today"

const (
	counterSelector = "#maincounter-wrap"
	numberSelector  = ".maincounter-number"

	nameIdx     = 1
	newCasesIdx = 3
)

// ErrTableNotFound is returned when the per-state table is missing
var ErrTableNotFound = errors.New("state table not found")

// Client extracts case and outcome counters from Worldometers
// ⭐ SSOT: Worldometers requests are made through this client only
type Client struct {
	renderer contracts.PageRenderer
	logger   *logger.Logger
	url      string
}

// NewClient creates a new Worldometers client
func NewClient(renderer contracts.PageRenderer, url string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		renderer: renderer,
		logger:   log.Component("worldometers"),
		url:      url,
	}
}

// URL returns the page URL
func (c *Client) URL() string { return c.url }

// ExtractCounters renders the US page and reads new cases per state plus
// the national death and recovery counters
func (c *Client) ExtractCounters(ctx context.Context) (*contracts.Counters, error) {
	html, err := c.renderer.Render(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("failed to render Worldometers page: %w", err)
	}

	counters, err := ParseCounters(html, c.logger)
	if errors.Is(err, ErrTableNotFound) {
		c.logger.WithField("url", c.url).Warn("State table not found, only national counters read")
		err = nil
	}
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"states":    len(counters.NewCases),
		"deaths":    counters.Deaths != nil,
		"recovered": counters.Recovered != nil,
	}).Info("Extracted Worldometers counters")

	return counters, nil
}

// ParseCounters reads the US page. Rows whose new-case cell does not parse
// are skipped. When the state table is missing the national counters are
// still returned together with ErrTableNotFound.
func ParseCounters(html string, log *logger.Logger) (*contracts.Counters, error) {
	if log == nil {
		log = logger.Nop()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	counters := &contracts.Counters{}
	parseNational(doc, counters, log)

	table := doc.Find(TableSelector).First()
	if table.Length() == 0 {
		return counters, ErrTableNotFound
	}

	skipped := 0
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() <= newCasesIdx {
			return
		}

		nameCell := cells.Eq(nameIdx)
		region := strings.TrimSpace(nameCell.Find("a").First().Text())
		if region == "" {
			region = strings.TrimSpace(nameCell.Text())
		}
		if region == "" || isTotalRow(region) {
			return
		}

		v, err := contracts.ParseCount("new_cases", cells.Eq(newCasesIdx).Text())
		value, keep := contracts.SkipRow.Apply(v, err)
		if !keep {
			skipped++
			return
		}

		counters.NewCases = append(counters.NewCases, contracts.Record{
			Region: region,
			Value:  value,
			Period: contracts.PeriodCurrent,
		})
	})

	if skipped > 0 {
		log.WithField("skipped", skipped).Debug("Skipped rows without new cases")
	}

	return counters, nil
}

func parseNational(doc *goquery.Document, counters *contracts.Counters, log *logger.Logger) {
	doc.Find(counterSelector).Each(func(i int, block *goquery.Selection) {
		label := strings.TrimSpace(block.Find("h1").First().Text())

		var target **contracts.Record
		switch label {
		case "Deaths:":
			target = &counters.Deaths
		case "Recovered:":
			target = &counters.Recovered
		default:
			return
		}

		raw := block.Find(numberSelector).First().Text()
		v, err := contracts.ParseCount(strings.TrimSuffix(label, ":"), raw)
		if _, keep := contracts.SkipRow.Apply(v, err); !keep {
			log.WithError(err).Debug("Unparseable national counter")
			return
		}

		*target = &contracts.Record{
			Region: contracts.NationalRegion,
			Value:  v,
			Period: contracts.PeriodCurrent,
		}
	})
}

func isTotalRow(region string) bool {
	r := strings.ToLower(strings.TrimSuffix(region, ":"))
	return r == "total" || r == "usa total"
}

var _ contracts.CountersExtractor = (*Client)(nil)
