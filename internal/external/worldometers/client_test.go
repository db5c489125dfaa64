package worldometers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/logger"
)

type fakeRenderer struct {
	html string
	err  error
}

func (f fakeRenderer) Render(context.Context, string) (string, error) {
	return f.html, f.err
}

const usPage = `<html><body>
<div id="maincounter-wrap"><h1>Coronavirus Cases:</h1><div class="maincounter-number"><span>111,820,082</span></div></div>
<div id="maincounter-wrap"><h1>Deaths:</h1><div class="maincounter-number"><span>1,219,487 </span></div></div>
<div id="maincounter-wrap"><h1>Recovered:</h1><div class="maincounter-number"><span>109,814,428</span></div></div>
<table id="usa_table_countries_today">
  <thead><tr><th>#</th><th>USA State</th><th>Total Cases</th><th>New Cases</th></tr></thead>
  <tbody>
    <tr><td></td><td>USA Total</td><td>111,820,082</td><td>+1,000</td></tr>
    <tr><td>1</td><td><a href="/coronavirus/usa/california/">California</a> </td><td>12,700,000</td><td>+1,234</td></tr>
    <tr><td>2</td><td>Texas</td><td>9,000,000</td><td>+56</td></tr>
    <tr><td>3</td><td><a href="/coronavirus/usa/ohio/">Ohio</a></td><td>3,400,000</td><td></td></tr>
    <tr><td>4</td><td>Iowa</td></tr>
    <tr><td></td><td>Total:</td><td>111,820,082</td><td>+1,290</td></tr>
  </tbody>
</table>
</body></html>`

func TestParseCounters(t *testing.T) {
	got, err := ParseCounters(usPage, logger.Nop())
	require.NoError(t, err)

	want := &contracts.Counters{
		NewCases: []contracts.Record{
			{Region: "California", Value: 1234, Period: "Current"},
			{Region: "Texas", Value: 56, Period: "Current"},
		},
		Deaths:    &contracts.Record{Region: "United States", Value: 1219487, Period: "Current"},
		Recovered: &contracts.Record{Region: "United States", Value: 109814428, Period: "Current"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseCounters mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCounters_NoTable(t *testing.T) {
	got, err := ParseCounters(`<div id="maincounter-wrap"><h1>Deaths:</h1><div class="maincounter-number">10</div></div>`, nil)
	assert.ErrorIs(t, err, ErrTableNotFound)
	require.NotNil(t, got)
	require.NotNil(t, got.Deaths)
	assert.Equal(t, 10.0, got.Deaths.Value)
	assert.Nil(t, got.Recovered)
	assert.Empty(t, got.NewCases)
}

func TestExtractCounters(t *testing.T) {
	c := NewClient(fakeRenderer{html: usPage}, "https://www.worldometers.info/coronavirus/country/us/", nil)

	counters, err := c.ExtractCounters(context.Background())
	require.NoError(t, err)
	assert.Len(t, counters.NewCases, 2)

	c = NewClient(fakeRenderer{html: "<html></html>"}, "u", nil)
	counters, err = c.ExtractCounters(context.Background())
	require.NoError(t, err, "a missing table is logged, not returned")
	assert.Empty(t, counters.NewCases)

	c = NewClient(fakeRenderer{err: errors.New("render service down")}, "u", nil)
	_, err = c.ExtractCounters(context.Background())
	assert.Error(t, err)
}
