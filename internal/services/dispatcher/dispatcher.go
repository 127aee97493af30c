package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/ParcelSync/internal/broker/messages"
	"github.com/BearBump/ParcelSync/internal/integrations/delivery"
	"github.com/BearBump/ParcelSync/internal/models"
	"go.uber.org/zap"
)

const DefaultMaxPerRun = 20

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Dispatcher struct {
	sink     delivery.Sink
	producer Producer
	rl       RateLimiter
	log      *zap.Logger
	now      func() time.Time

	topic      string
	maxPerRun  int
	dailyQuota int64
	dryRun     bool
}

// New builds a dispatcher. A nil sink means the downstream credentials are
// missing; outside dry-run every Dispatch then returns without calling anything.
func New(sink delivery.Sink, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		sink:      sink,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		maxPerRun: DefaultMaxPerRun,
	}
}

func (d *Dispatcher) WithSettings(maxPerRun int, dryRun bool) *Dispatcher {
	if maxPerRun > 0 {
		d.maxPerRun = maxPerRun
	}
	d.dryRun = dryRun
	return d
}

// WithDailyQuota caps submissions per UTC day across runs. Running out of
// quota is handled like a downstream rate limit.
func (d *Dispatcher) WithDailyQuota(rl RateLimiter, perDay int64) *Dispatcher {
	if rl != nil && perDay > 0 {
		d.rl = rl
		d.dailyQuota = perDay
	}
	return d
}

func (d *Dispatcher) WithEvents(p Producer, topic string) *Dispatcher {
	if p != nil && topic != "" {
		d.producer = p
		d.topic = topic
	}
	return d
}

type Batch struct {
	RunID      string
	Account    string
	Candidates []models.ShipmentCandidate
	// Attempted carries the numbers already tried in this run across batches.
	// Nil means the batch starts from an empty set.
	Attempted map[string]struct{}
}

type Report struct {
	Attempted         int
	Added             int
	Duplicates        int
	AlreadyKnown      int
	Rejected          int
	TransportFailures int
	CapReached        bool
	RateLimited       bool
}

// Dispatch submits every candidate not yet in history, appending accepted
// ones to history in place. It stops early at the per-run cap or on the
// first rate-limited answer; records appended before that are kept.
func (d *Dispatcher) Dispatch(ctx context.Context, b Batch, history *[]models.HistoryRecord) Report {
	var rep Report
	log := d.log.With(zap.String("account", b.Account))

	if d.sink == nil && !d.dryRun {
		log.Error("parcel api key is not configured, skipping dispatch")
		return rep
	}

	known := models.TrackingNumbers(*history)
	attempted := b.Attempted
	if attempted == nil {
		attempted = make(map[string]struct{}, len(b.Candidates))
	}

	for _, c := range b.Candidates {
		if _, ok := known[c.TrackingNumber]; ok {
			rep.AlreadyKnown++
			log.Debug("tracking number already synced", zap.String("tracking_number", c.TrackingNumber))
			continue
		}
		if _, ok := attempted[c.TrackingNumber]; ok {
			log.Debug("tracking number already attempted in this run", zap.String("tracking_number", c.TrackingNumber))
			continue
		}
		if rep.Attempted >= d.maxPerRun {
			rep.CapReached = true
			log.Info("per-run submission cap reached", zap.Int("max_per_run", d.maxPerRun))
			break
		}

		reg := delivery.Registration{
			TrackingNumber: c.TrackingNumber,
			CarrierCode:    CarrierCode(c.CarrierHint),
			Description:    c.Description,
		}
		entry := log.With(
			zap.String("tracking_number", reg.TrackingNumber),
			zap.String("carrier_code", reg.CarrierCode),
		)

		if d.dryRun {
			attempted[c.TrackingNumber] = struct{}{}
			rep.Attempted++
			entry.Info("dry run: would register delivery", zap.String("description", reg.Description))
			d.accept(ctx, b, c, reg, false, history, &rep)
			continue
		}

		if !d.quotaAllows(ctx, entry) {
			rep.RateLimited = true
			break
		}

		attempted[c.TrackingNumber] = struct{}{}
		rep.Attempted++

		res, err := d.sink.Register(ctx, reg)
		if err != nil {
			rep.TransportFailures++
			entry.Error("register delivery: transport failure", zap.Error(err))
			continue
		}

		switch res.Outcome {
		case delivery.OutcomeAccepted:
			if res.Duplicate {
				rep.Duplicates++
				entry.Info("delivery already registered downstream")
			} else {
				entry.Info("delivery registered")
			}
			d.accept(ctx, b, c, reg, res.Duplicate, history, &rep)
		case delivery.OutcomeRateLimited:
			rep.RateLimited = true
			entry.Warn("downstream rate limit hit, stopping dispatch",
				zap.Int("status", res.StatusCode), zap.String("message", res.Message))
			return rep
		default:
			rep.Rejected++
			entry.Error("register delivery: rejected",
				zap.Int("status", res.StatusCode), zap.String("message", res.Message))
		}
	}
	return rep
}

func (d *Dispatcher) accept(
	ctx context.Context,
	b Batch,
	c models.ShipmentCandidate,
	reg delivery.Registration,
	duplicate bool,
	history *[]models.HistoryRecord,
	rep *Report,
) {
	now := d.now()
	*history = append(*history, models.HistoryRecord{TrackingNumber: c.TrackingNumber, AddedAt: now})
	rep.Added++

	if d.dryRun || d.producer == nil {
		return
	}
	msg, err := json.Marshal(messages.DeliveryRegistered{
		RunID:          b.RunID,
		Account:        b.Account,
		TrackingNumber: reg.TrackingNumber,
		CarrierCode:    reg.CarrierCode,
		Description:    reg.Description,
		OrderID:        c.OrderID,
		Duplicate:      duplicate,
		RegisteredAt:   now,
	})
	if err != nil {
		d.log.Error("marshal delivery event", zap.Error(err))
		return
	}
	if err := d.producer.Publish(ctx, d.topic, []byte(reg.TrackingNumber), msg); err != nil {
		d.log.Warn("publish delivery event", zap.String("tracking_number", reg.TrackingNumber), zap.Error(err))
	}
}

// quotaAllows consumes one unit of the daily quota. Quota store errors are
// logged and do not block the submission.
func (d *Dispatcher) quotaAllows(ctx context.Context, log *zap.Logger) bool {
	if d.rl == nil {
		return true
	}
	key := "rl:parcel:" + d.now().Format("20060102")
	allowed, n, err := d.rl.Allow(ctx, key, d.dailyQuota, 25*time.Hour)
	if err != nil {
		log.Warn("daily quota check failed", zap.Error(err))
		return true
	}
	if !allowed {
		log.Warn("daily parcel quota exhausted, stopping dispatch",
			zap.Int64("count", n), zap.Int64("quota", d.dailyQuota))
		return false
	}
	return true
}
