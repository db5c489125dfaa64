package contracts

import "context"

// PageRenderer returns the HTML of a page after its scripts have run
// ⭐ SSOT: page rendering interface
type PageRenderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// CovidExtractor produces weekly positivity records
type CovidExtractor interface {
	ExtractPositivity(ctx context.Context) ([]Record, error)
}

// RSVExtractor produces RSV rate records from the CSV export
type RSVExtractor interface {
	ExtractRSV(ctx context.Context) ([]Record, error)
}

// CountersExtractor produces per-state new cases and national counters
type CountersExtractor interface {
	ExtractCounters(ctx context.Context) (*Counters, error)
}

// Counters is the Worldometers snapshot
type Counters struct {
	NewCases  []Record `json:"new_cases"`
	Deaths    *Record  `json:"deaths,omitempty"`
	Recovered *Record  `json:"recovered,omitempty"`
}

// ChatModel streams a reply for one prompt. Each chunk is passed to emit
// in order.
type ChatModel interface {
	Chat(ctx context.Context, prompt string, emit func(chunk string) error) error
}
