package main

import (
	"context"

	"github.com/BearBump/ParcelSync/config"
	"github.com/BearBump/ParcelSync/internal/broker/kafka"
	"github.com/BearBump/ParcelSync/internal/cache/rediscache"
	"github.com/BearBump/ParcelSync/internal/integrations/delivery"
	"github.com/BearBump/ParcelSync/internal/integrations/ebay"
	"github.com/BearBump/ParcelSync/internal/integrations/parcel"
	"github.com/BearBump/ParcelSync/internal/services/dispatcher"
	"github.com/BearBump/ParcelSync/internal/services/syncer"
	"github.com/BearBump/ParcelSync/internal/storage/historyfile"
	"go.uber.org/zap"
)

// sharedCache backs both the eBay token cache and the daily Parcel quota.
type sharedCache interface {
	ebay.TokenCache
	dispatcher.RateLimiter
}

type syncFactories struct {
	newHistory  func(cfg *config.Config, log *zap.Logger) syncer.HistoryStore
	newSink     func(cfg *config.Config) delivery.Sink
	newCache    func(ctx context.Context, cfg *config.Config) (sharedCache, func(), error)
	newProducer func(cfg *config.Config) (dispatcher.Producer, func())
	newSource   func(cfg *config.Config, acct config.Account, cache ebay.TokenCache, log *zap.Logger) syncer.AccountSource
}

func defaultSyncFactories() syncFactories {
	return syncFactories{
		newHistory: func(cfg *config.Config, log *zap.Logger) syncer.HistoryStore {
			return historyfile.New(cfg.Sync.HistoryPath, cfg.Sync.DryRun, log)
		},
		newSink: func(cfg *config.Config) delivery.Sink {
			if cfg.Parcel.APIKey == "" {
				return nil
			}
			return parcel.New(cfg.Parcel.BaseURL, cfg.Parcel.APIKey)
		},
		newCache: func(ctx context.Context, cfg *config.Config) (sharedCache, func(), error) {
			if cfg.Redis.Addr == "" {
				return nil, nil, nil
			}
			c := rediscache.New(cfg.Redis.Addr)
			if err := c.Ping(ctx); err != nil {
				_ = c.Close()
				return nil, nil, err
			}
			return c, func() { _ = c.Close() }, nil
		},
		newProducer: func(cfg *config.Config) (dispatcher.Producer, func()) {
			if len(cfg.Kafka.Brokers) == 0 {
				return nil, nil
			}
			p := kafka.NewProducer(cfg.Kafka.Brokers)
			return p, func() { _ = p.Close() }
		},
		newSource: func(cfg *config.Config, acct config.Account, cache ebay.TokenCache, log *zap.Logger) syncer.AccountSource {
			creds := ebay.Credentials{AppID: acct.AppID, DevID: acct.DevID, ClientSecret: acct.ClientSecret}
			auth := ebay.NewAuth(cfg.Ebay.IdentityURL, creds, acct.UserToken, acct.RefreshToken).
				WithCache(cache, rediscache.TokenKey(acct.Label()))
			return syncer.AccountSource{
				Orders: ebay.New(cfg.Ebay.TradingURL, creds, auth, log.With(zap.String("account", acct.Label()))),
				Tokens: auth,
			}
		},
	}
}

// RunSync wires the collaborators for one sync run and executes it. Redis and
// Kafka are optional; when they are unreachable the run goes on without them.
func RunSync(ctx context.Context, cfg *config.Config, accounts []config.Account, f syncFactories, log *zap.Logger) (syncer.Summary, error) {
	cache, closeCache, err := f.newCache(ctx, cfg)
	if err != nil {
		log.Warn("redis unavailable, running without token cache and daily quota", zap.Error(err))
		cache = nil
	}
	if closeCache != nil {
		defer closeCache()
	}

	producer, closeProducer := f.newProducer(cfg)
	if closeProducer != nil {
		defer closeProducer()
	}

	sink := f.newSink(cfg)
	if sink == nil {
		log.Warn("PARCEL_API_KEY not configured")
	}

	d := dispatcher.New(sink, log).
		WithEvents(producer, cfg.Kafka.DeliveryRegisteredTopic)

	var tokens ebay.TokenCache
	if cache != nil {
		tokens = cache
		d.WithDailyQuota(cache, int64(cfg.Parcel.DailyQuota))
	}

	sources := func(acct config.Account) (syncer.AccountSource, error) {
		return f.newSource(cfg, acct, tokens, log), nil
	}

	s := syncer.New(accounts, sources, f.newHistory(cfg, log), d, log)
	return s.Run(ctx, syncer.Options{
		MaxDaysBack: cfg.Sync.DaysBack,
		MaxPerRun:   cfg.Sync.MaxPerRun,
		MaxAgeDays:  cfg.Sync.MaxAgeDays,
		DryRun:      cfg.Sync.DryRun,
	})
}
