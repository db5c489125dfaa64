package cdc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/config"
	"github.com/healthdash/backend/pkg/httputil"
	"github.com/healthdash/backend/pkg/logger"
)

type fakeRenderer struct {
	html string
	err  error
}

func (f fakeRenderer) Render(context.Context, string) (string, error) {
	return f.html, f.err
}

func testHTTPClient() *httputil.Client {
	return httputil.New(&config.Config{HTTP: config.HTTPConfig{
		Timeout:       5 * time.Second,
		RatePerSecond: 1000,
	}}, logger.Nop())
}

const trackerTable = `<html><body>
<table>
  <thead><tr><th>State/Territory</th><th>Region</th><th>Test positivity (%) in past week</th></tr></thead>
  <tbody>
    <tr><td>Texas</td><td>6</td><td>12.5</td></tr>
    <tr><td>Ohio</td><td>5</td><td>N/A</td></tr>
    <tr><td>Short</td></tr>
  </tbody>
</table>
<table><tr><td>second table is ignored</td></tr></table>
</body></html>`

func TestParsePositivity(t *testing.T) {
	got, err := ParsePositivity(trackerTable, logger.Nop())
	require.NoError(t, err)

	want := []contracts.Record{
		{Region: "Texas", Value: 12.5, Period: "Past 4 Weeks"},
		{Region: "Ohio", Value: 0.0, Period: "Past 4 Weeks"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParsePositivity mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePositivity_HeaderOrder(t *testing.T) {
	html := `<table>
		<tr><td>Test positivity (%) in past week</td><td>State/Territory</td></tr>
		<tr><td>3.2</td><td>Alaska</td></tr>
	</table>`

	got, err := ParsePositivity(html, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alaska", got[0].Region)
	assert.Equal(t, 3.2, got[0].Value)
}

func TestParsePositivity_FallbackIndices(t *testing.T) {
	html := `<table>
		<tr><th>Jurisdiction</th><th>Level</th><th>Positivity</th></tr>
		<tr><td>Maine</td><td>low</td><td>4.0</td></tr>
		<tr><td>Iowa</td><td>low</td></tr>
	</table>`

	got, err := ParsePositivity(html, nil)
	require.NoError(t, err)
	require.Len(t, got, 1, "rows with too few cells are skipped")
	assert.Equal(t, contracts.Record{Region: "Maine", Value: 4.0, Period: contracts.PeriodPast4Weeks}, got[0])
}

func TestParsePositivity_NoTable(t *testing.T) {
	_, err := ParsePositivity(`<html><body><div>loading...</div></body></html>`, nil)
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestExtractPositivity_NoTableIsEmpty(t *testing.T) {
	c := NewClient(testHTTPClient(), fakeRenderer{html: "<html></html>"}, config.SourcesConfig{CDCCovidURL: "u"}, nil)

	records, err := c.ExtractPositivity(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestExtractPositivity_RenderError(t *testing.T) {
	c := NewClient(testHTTPClient(), fakeRenderer{err: errors.New("timeout")}, config.SourcesConfig{}, nil)

	_, err := c.ExtractPositivity(context.Background())
	assert.Error(t, err)
}

const rsvCSV = "State,Season,Week ending date,Age Category,Cumulative Rate,Type\n" +
	"Ohio,2022-23,2022-10-01,All,1.5,Crude Rate\n" +
	"Ohio,2022-23,2022-10-08,All,N/A,Crude Rate\n" +
	"Texas,2022-23,10/15/2022,All,2.25,Crude Rate\n" +
	"Broken,2022-23\n"

func TestParseRSV(t *testing.T) {
	got, err := ParseRSV(strings.NewReader(rsvCSV), logger.Nop())
	require.NoError(t, err)

	want := []contracts.Record{
		{Region: "Ohio", Value: 1.5, Period: "2022-10-01"},
		{Region: "Ohio", Value: 0.0, Period: "2022-10-08"},
		{Region: "Texas", Value: 2.25, Period: "10/15/2022"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseRSV mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRSV_MissingColumn(t *testing.T) {
	_, err := ParseRSV(strings.NewReader("State,Rate\nOhio,1\n"), nil)
	assert.ErrorIs(t, err, ErrColumnMissing)
}

func TestParseRSV_Empty(t *testing.T) {
	got, err := ParseRSV(strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractRSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(rsvCSV))
	}))
	defer server.Close()

	c := NewClient(testHTTPClient(), nil, config.SourcesConfig{CDCRSVURL: server.URL}, logger.Nop())
	assert.Equal(t, server.URL, c.RSVURL())

	records, err := c.ExtractRSV(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestExtractRSV_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(testHTTPClient(), nil, config.SourcesConfig{CDCRSVURL: server.URL}, logger.Nop())

	_, err := c.ExtractRSV(context.Background())
	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
