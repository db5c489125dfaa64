package freshness

import (
	"context"
	"fmt"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/logger"
)

// State is the outcome of a freshness check
type State int

const (
	// Unchanged means the stored and current tokens match
	Unchanged State = iota
	// Changed means the source differs from the last committed run, or no
	// token was ever committed
	Changed
	// CheckFailed means the probe or the token lookup failed
	CheckFailed
)

func (s State) String() string {
	switch s {
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	case CheckFailed:
		return "check_failed"
	default:
		return "unknown"
	}
}

// Result of one Check
type Result struct {
	State State
	Token string
	Err   error
}

// Proceed reports whether the source should be fetched. A failed check
// proceeds: stale data is worse than a redundant scrape.
func (r Result) Proceed() bool {
	return r.State != Unchanged
}

// Probe computes the current freshness token of a source
type Probe interface {
	Token(ctx context.Context, url string) (string, error)
}

// Detector compares probe tokens with the tokens stored in scrape_cache
// ⭐ SSOT: skip/proceed decisions for every source are made here
type Detector struct {
	tokens contracts.TokenStore
	logger *logger.Logger
}

// NewDetector creates a new Detector
func NewDetector(tokens contracts.TokenStore, log *logger.Logger) *Detector {
	if log == nil {
		log = logger.Nop()
	}
	return &Detector{
		tokens: tokens,
		logger: log.Component("freshness"),
	}
}

// Check probes url and compares the token with the stored one. Nothing is
// written; call Commit once the fetched data is safely stored.
func (d *Detector) Check(ctx context.Context, url string, probe Probe) Result {
	log := d.logger.WithField("url", url)

	token, err := probe.Token(ctx, url)
	if err != nil {
		log.WithError(err).Warn("Freshness probe failed, proceeding")
		return Result{State: CheckFailed, Err: err}
	}

	stored, err := d.tokens.GetToken(ctx, url)
	if err != nil {
		log.WithError(err).Warn("Token lookup failed, proceeding")
		return Result{State: CheckFailed, Token: token, Err: err}
	}

	if token != "" && stored != "" && token == stored {
		log.Debug("Source unchanged")
		return Result{State: Unchanged, Token: token}
	}

	log.WithField("token", token).Debug("Source changed or token unavailable")
	return Result{State: Changed, Token: token}
}

// Commit stores token for url. Empty tokens are ignored so that a source
// without a token is always fetched.
func (d *Detector) Commit(ctx context.Context, url, token string) error {
	if token == "" {
		return nil
	}
	if err := d.tokens.PutToken(ctx, url, token); err != nil {
		return fmt.Errorf("failed to commit token: %w", err)
	}
	return nil
}
