package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorcore/internal/action"
	"anchorcore/internal/config"
	"anchorcore/pkg/domain"
)

const usdc = "stellar:USDC:GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func writeAssets(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assets.yaml")
	doc := "assets:\n  - id: " + usdc + "\n    code: USDC\n    sep24: true\n  - id: iso4217:USD\n    code: USD\n    sep24: true\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Storage:    config.StorageConfig{Driver: "memory"},
		Lock:       config.LockConfig{Driver: "local"},
		Events:     config.EventsConfig{Driver: "memory", Prefix: "events"},
		AssetsFile: writeAssets(t),
	}
}

func seed(t *testing.T, svc *Service, txn *domain.Transaction) {
	t.Helper()
	for _, s := range svc.Stores() {
		if s.Protocol() == txn.Protocol {
			_, err := s.Save(context.Background(), txn)
			require.NoError(t, err)
			return
		}
	}
	t.Fatalf("no store for protocol %s", txn.Protocol)
}

func deposit(id string) *domain.Transaction {
	return &domain.Transaction{
		ID:        id,
		Protocol:  domain.ProtocolSep24,
		Kind:      domain.KindDeposit,
		Status:    domain.StatusIncomplete,
		StartedAt: fixedNow.Add(-time.Hour),
		UpdatedAt: fixedNow.Add(-time.Hour),
	}
}

func offchainRequest(id string) action.Request {
	return action.Request{
		TransactionID: id,
		AmountIn:      &action.AmountRequest{Amount: "1", Asset: usdc},
		AmountOut:     &action.AmountRequest{Amount: "0.9", Asset: "iso4217:USD"},
		AmountFee:     &action.AmountRequest{Amount: "0.1", Asset: usdc},
	}
}

func TestServiceDispatchesAndArchives(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	var tick int
	clock := func() time.Time {
		tick++
		return fixedNow.Add(time.Duration(tick) * time.Second)
	}
	svc, err := NewService(ctx, testConfig(t), WithRegisterer(reg), WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	seed(t, svc, deposit("tx-1"))
	got, err := svc.Dispatch(ctx, action.RequestOffchainFunds, offchainRequest("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingUsrTransferStart, got.Status)
	assert.True(t, got.UpdatedAt.After(fixedNow))

	_, err = svc.Dispatch(ctx, action.NotifyTransactionExpired, action.Request{TransactionID: "tx-1"})
	require.NoError(t, err)

	history, err := svc.History(ctx, domain.ProtocolSep24, "tx-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.StatusPendingUsrTransferStart, history[0].To)
	assert.Equal(t, domain.StatusExpired, history[1].To)

	assert.True(t, svc.Assets().IsSupportedAsset(usdc))
	assert.Len(t, svc.Actions(), 5)
	series, err := testutil.GatherAndCount(reg, "anchorcore_action_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestServiceWithoutArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Events.Driver = "none"
	cfg.AssetsFile = ""
	svc, err := NewService(context.Background(), cfg)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.History(context.Background(), domain.ProtocolSep24, "tx")
	assert.EqualError(t, err, "event archive disabled")

	seed(t, svc, deposit("tx-2"))
	_, err = svc.Dispatch(context.Background(), action.RequestOffchainFunds, offchainRequest("tx-2"))
	assert.EqualError(t, err, "'"+usdc+"' is not a supported asset.")
}

func TestServiceOnSQLiteWithRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Storage = config.StorageConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "anchor.db")}
	cfg.Lock = config.LockConfig{Driver: "redis", RedisAddr: mr.Addr(), Prefix: "test:", Expiry: time.Second}
	cfg.Events = config.EventsConfig{Driver: "fs", FSRoot: t.TempDir()}

	ctx := context.Background()
	svc, err := NewService(ctx, cfg)
	require.NoError(t, err)
	defer svc.Close()

	seed(t, svc, deposit("tx-3"))
	_, err = svc.Dispatch(ctx, action.RequestOffchainFunds, offchainRequest("tx-3"))
	require.NoError(t, err)

	stored, err := svc.Stores()[0].FindByTransactionID(ctx, "tx-3")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingUsrTransferStart, stored.Status)
	assert.False(t, mr.Exists("test:tx-3"), "lock released after dispatch")

	history, err := svc.History(ctx, domain.ProtocolSep24, "tx-3")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestNewServiceFailures(t *testing.T) {
	cases := map[string]func(*config.Config){
		"missing assets file": func(c *config.Config) { c.AssetsFile = filepath.Join(t.TempDir(), "missing.yaml") },
		"unknown storage":     func(c *config.Config) { c.Storage.Driver = "mongo" },
		"unknown lock":        func(c *config.Config) { c.Lock.Driver = "etcd" },
		"unreachable redis":   func(c *config.Config) { c.Lock = config.LockConfig{Driver: "redis", RedisAddr: "127.0.0.1:1"} },
		"unknown events":      func(c *config.Config) { c.Events.Driver = "kafka" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(t)
			mutate(&cfg)
			svc, err := NewService(context.Background(), cfg)
			assert.Error(t, err)
			assert.Nil(t, svc)
		})
	}
}
