package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/BearBump/ParcelSync/config"
	"github.com/BearBump/ParcelSync/internal/broker/kafka"
	"github.com/BearBump/ParcelSync/internal/integrations/parcel"
	"github.com/BearBump/ParcelSync/internal/integrations/parcel/emulator"
	"github.com/BearBump/ParcelSync/internal/storage/historyfile"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tradingServer(t *testing.T, numbers ...string) *httptest.Server {
	t.Helper()
	details := ""
	for _, n := range numbers {
		details += fmt.Sprintf(`<ShipmentTrackingDetails><ShippingCarrierUsed>UPS</ShippingCarrierUsed>`+
			`<ShipmentTrackingNumber>%s</ShipmentTrackingNumber></ShipmentTrackingDetails>`, n)
	}
	created := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02T15:04:05.000Z")
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<GetOrdersResponse xmlns="urn:ebay:apis:eBLBaseComponents">
<Ack>Success</Ack><HasMoreOrders>false</HasMoreOrders>
<OrderArray><Order><OrderID>11-1</OrderID><CreatedTime>%s</CreatedTime>
<ShippingDetails>%s</ShippingDetails>
<TransactionArray><Transaction><Item><Title>Desk Lamp</Title></Item></Transaction></TransactionArray>
</Order></OrderArray></GetOrdersResponse>`, created, details)

	r := chi.NewRouter()
	r.Post("/ws/api.dll", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, tradingURL, parcelURL string) *config.Config {
	cfg := &config.Config{
		Sync:   config.SyncConfig{HistoryPath: filepath.Join(t.TempDir(), "tracking_history.json")},
		Ebay:   config.EbayConfig{TradingURL: tradingURL + "/ws/api.dll"},
		Parcel: config.ParcelConfig{APIKey: "pk", BaseURL: parcelURL},
	}
	return cfg.WithDefaults()
}

var primary = []config.Account{{AppID: "app", ClientSecret: "secret", UserToken: "tok"}}

func TestRunSync_EndToEnd(t *testing.T) {
	ebaySrv := tradingServer(t, "1Z001", "1Z002")
	emu := emulator.New("pk")
	parcelSrv := httptest.NewServer(emu.Handler())
	defer parcelSrv.Close()

	cfg := testConfig(t, ebaySrv.URL, parcelSrv.URL)
	ctx := context.Background()

	sum, err := RunSync(ctx, cfg, primary, defaultSyncFactories(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, sum.Added)
	require.True(t, sum.Saved)
	require.NotEmpty(t, sum.RunID)

	got := emu.Registered()
	require.Len(t, got, 2)
	require.Equal(t, "ups", got[0].CarrierCode)
	require.Equal(t, "Desk Lamp", got[0].Description)

	// second run finds everything in history
	sum, err = RunSync(ctx, cfg, primary, defaultSyncFactories(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 0, sum.Added)
	require.Len(t, emu.Registered(), 2)

	records, err := historyfile.New(cfg.Sync.HistoryPath, false, nil).Load()
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestRunSync_DailyQuotaInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	ebaySrv := tradingServer(t, "1Z001", "1Z002", "1Z003")
	emu := emulator.New("pk")
	parcelSrv := httptest.NewServer(emu.Handler())
	defer parcelSrv.Close()

	cfg := testConfig(t, ebaySrv.URL, parcelSrv.URL)
	cfg.Redis.Addr = mr.Addr()
	cfg.Parcel.DailyQuota = 2

	sum, err := RunSync(context.Background(), cfg, primary, defaultSyncFactories(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, sum.Added)
	require.True(t, sum.Accounts[0].RateLimited)
	require.Len(t, emu.Registered(), 2)
}

func TestRunSync_DryRun(t *testing.T) {
	ebaySrv := tradingServer(t, "1Z001")
	emu := emulator.New("pk")
	parcelSrv := httptest.NewServer(emu.Handler())
	defer parcelSrv.Close()

	cfg := testConfig(t, ebaySrv.URL, parcelSrv.URL)
	cfg.Sync.DryRun = true

	sum, err := RunSync(context.Background(), cfg, primary, defaultSyncFactories(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Added)
	require.False(t, sum.Saved)
	require.Empty(t, emu.Registered())
	require.NoFileExists(t, cfg.Sync.HistoryPath)
}

func TestRunSync_UnreachableRedisIsNotFatal(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ebaySrv := tradingServer(t, "1Z001")
	emu := emulator.New("pk")
	parcelSrv := httptest.NewServer(emu.Handler())
	defer parcelSrv.Close()

	cfg := testConfig(t, ebaySrv.URL, parcelSrv.URL)
	cfg.Redis.Addr = addr
	cfg.Parcel.DailyQuota = 1

	sum, err := RunSync(context.Background(), cfg, primary, defaultSyncFactories(), zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Added)
}

func TestDefaultSyncFactories_Select(t *testing.T) {
	f := defaultSyncFactories()
	cfg := (&config.Config{}).WithDefaults()

	require.Nil(t, f.newSink(cfg))
	cfg.Parcel.APIKey = "pk"
	_, ok := f.newSink(cfg).(*parcel.Client)
	require.True(t, ok)

	p, closeFn := f.newProducer(cfg)
	require.Nil(t, p)
	require.Nil(t, closeFn)
	cfg.Kafka.Brokers = []string{"localhost:0"}
	p, closeFn = f.newProducer(cfg)
	_, ok = p.(*kafka.Producer)
	require.True(t, ok)
	closeFn()

	c, closeCache, err := f.newCache(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, c)
	require.Nil(t, closeCache)
}
