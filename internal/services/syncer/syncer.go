// Package syncer walks every configured eBay account through fetch,
// normalize, filter and dispatch against one shared history.
package syncer

import (
	"context"
	"time"

	"github.com/BearBump/ParcelSync/config"
	"github.com/BearBump/ParcelSync/internal/integrations/marketplace"
	"github.com/BearBump/ParcelSync/internal/models"
	"github.com/BearBump/ParcelSync/internal/services/dispatcher"
	"github.com/BearBump/ParcelSync/internal/services/eligibility"
	"github.com/BearBump/ParcelSync/internal/services/normalizer"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultDaysBack = 90

type HistoryStore interface {
	Load() ([]models.HistoryRecord, error)
	Save(records []models.HistoryRecord) error
}

// AccountSource is what one account needs to list its orders.
type AccountSource struct {
	Orders marketplace.OrderSource
	Tokens marketplace.TokenProvider
}

type SourceFactory func(acct config.Account) (AccountSource, error)

type Options struct {
	MaxDaysBack int
	MaxPerRun   int
	MaxAgeDays  int
	DryRun      bool
}

type AccountReport struct {
	Account string
	// Skipped is set when the account could not be set up; Err says why.
	Skipped bool
	Err     string

	Found            int
	DeliveredSkipped int
	AgedSkipped      int
	Eligible         int
	dispatcher.Report
}

type Summary struct {
	RunID    string
	Added    int
	Saved    bool
	Accounts []AccountReport
}

type Syncer struct {
	accounts []config.Account
	sources  SourceFactory
	history  HistoryStore
	dispatch *dispatcher.Dispatcher
	log      *zap.Logger

	now      func() time.Time
	newRunID func() string
}

func New(accounts []config.Account, sources SourceFactory, history HistoryStore, d *dispatcher.Dispatcher, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		accounts: accounts,
		sources:  sources,
		history:  history,
		dispatch: d,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newRunID: func() string { return uuid.NewString() },
	}
}

// Run processes the accounts one after another and saves the history once,
// only when at least one record was added and the run is not a dry run.
// Per-account failures are logged and skipped; only history I/O fails the run.
func (s *Syncer) Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.MaxDaysBack <= 0 {
		opts.MaxDaysBack = DefaultDaysBack
	}
	s.dispatch.WithSettings(opts.MaxPerRun, opts.DryRun)
	sum := Summary{RunID: s.newRunID()}
	log := s.log.With(zap.String("run_id", sum.RunID))
	log.Info("sync run started",
		zap.Int("accounts", len(s.accounts)),
		zap.Int("days_back", opts.MaxDaysBack),
		zap.Int("max_per_run", opts.MaxPerRun),
		zap.Int("max_age_days", opts.MaxAgeDays),
		zap.Bool("dry_run", opts.DryRun),
	)

	if len(s.accounts) == 0 {
		log.Warn("no eBay accounts configured (EBAY_APP_ID or EBAY_APP_ID_<n>)")
	}

	history, err := s.history.Load()
	if err != nil {
		return sum, errors.Wrap(err, "load history")
	}
	log.Info("history loaded", zap.Int("records", len(history)))

	attempted := map[string]struct{}{}
	for _, acct := range s.accounts {
		rep := s.runAccount(ctx, log, acct, opts, sum.RunID, attempted, &history)
		sum.Accounts = append(sum.Accounts, rep)
		sum.Added += rep.Added
	}

	switch {
	case sum.Added == 0:
		log.Info("no new shipments to add")
	case opts.DryRun:
		log.Info("dry run: history not saved", zap.Int("would_add", sum.Added))
	default:
		if err := s.history.Save(history); err != nil {
			return sum, errors.Wrap(err, "save history")
		}
		sum.Saved = true
		log.Info("history saved", zap.Int("added", sum.Added), zap.Int("records", len(history)))
	}
	return sum, nil
}

func (s *Syncer) runAccount(
	ctx context.Context,
	log *zap.Logger,
	acct config.Account,
	opts Options,
	runID string,
	attempted map[string]struct{},
	history *[]models.HistoryRecord,
) AccountReport {
	rep := AccountReport{Account: acct.Label()}
	log = log.With(zap.String("account", rep.Account))

	src, err := s.setup(ctx, acct)
	if err != nil {
		rep.Skipped = true
		rep.Err = err.Error()
		log.Error("critical: account setup failed, skipping", zap.Bool("critical", true), zap.Error(err))
		return rep
	}

	payload, err := src.Orders.FetchOrders(ctx, opts.MaxDaysBack)
	if err != nil {
		log.Error("fetch orders failed", zap.Error(err))
		payload = nil
	}

	candidates := normalizer.Normalize(payload, s.now())
	filtered := eligibility.Filter(candidates, opts.MaxAgeDays)
	rep.Found = len(candidates)
	rep.DeliveredSkipped = filtered.DeliveredSkipped
	rep.AgedSkipped = filtered.AgedSkipped
	rep.Eligible = len(filtered.Eligible)

	rep.Report = s.dispatch.Dispatch(ctx, dispatcher.Batch{
		RunID:      runID,
		Account:    rep.Account,
		Candidates: filtered.Eligible,
		Attempted:  attempted,
	}, history)

	log.Info("account processed",
		zap.Int("found", rep.Found),
		zap.Int("delivered_skipped", rep.DeliveredSkipped),
		zap.Int("aged_skipped", rep.AgedSkipped),
		zap.Int("eligible", rep.Eligible),
		zap.Int("attempted", rep.Attempted),
		zap.Int("added", rep.Added),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("rejected", rep.Rejected),
		zap.Int("transport_failures", rep.TransportFailures),
		zap.Bool("cap_reached", rep.CapReached),
		zap.Bool("rate_limited", rep.RateLimited),
	)
	return rep
}

// setup validates the account, builds its order source and fetches a token
// up front so a bad account fails before any order request.
func (s *Syncer) setup(ctx context.Context, acct config.Account) (AccountSource, error) {
	if err := acct.Validate(); err != nil {
		return AccountSource{}, err
	}
	src, err := s.sources(acct)
	if err != nil {
		return AccountSource{}, errors.Wrap(err, "build order source")
	}
	if src.Orders == nil {
		return AccountSource{}, errors.New("no order source")
	}
	if src.Tokens != nil {
		if _, err := src.Tokens.Token(ctx); err != nil {
			return AccountSource{}, errors.Wrap(err, "obtain access token")
		}
	}
	return src, nil
}
