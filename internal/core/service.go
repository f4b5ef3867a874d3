// Package core wires the action dispatcher to its configured stores, lock,
// event archive, asset registry and metrics.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"anchorcore/internal/action"
	"anchorcore/internal/asset"
	"anchorcore/internal/blob"
	blobcore "anchorcore/internal/blob/core"
	"anchorcore/internal/config"
	"anchorcore/internal/events"
	s3store "anchorcore/internal/infra/blob/s3"
	"anchorcore/internal/infra/lock"
	"anchorcore/internal/view"
	"anchorcore/pkg/domain"
)

// Service exposes the action surface over the configured infrastructure.
type Service struct {
	dispatcher *action.Dispatcher
	stores     *Stores
	assets     *asset.Registry
	archive    *events.Archive
	closers    []func() error
}

// ServiceOption customises NewService.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
	now        func() time.Time
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = l }
}

// WithRegisterer registers action metrics on reg.
func WithRegisterer(reg prometheus.Registerer) ServiceOption {
	return func(o *serviceOptions) { o.registerer = reg }
}

// WithClock overrides the clock used for transaction and event timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) { o.now = now }
}

// NewService opens every collaborator named by cfg. Partially opened
// resources are released on failure.
func NewService(ctx context.Context, cfg config.Config, opts ...ServiceOption) (_ *Service, err error) {
	o := serviceOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	svc := &Service{}
	defer func() {
		if err != nil {
			_ = svc.Close()
		}
	}()

	if svc.assets, err = loadAssets(cfg.AssetsFile); err != nil {
		return nil, err
	}
	if svc.stores, err = OpenStores(ctx, cfg.Storage); err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, svc.stores.Close)

	locker, err := svc.openLocker(ctx, cfg.Lock, o.logger)
	if err != nil {
		return nil, err
	}
	publisher, err := svc.openPublisher(ctx, cfg.Events)
	if err != nil {
		return nil, err
	}

	deps := action.Deps{
		Stores: svc.stores.List,
		Assets: svc.assets,
		Now:    o.now,
	}
	dopts := []action.Option{
		action.WithLocker(locker),
		action.WithLogger(o.logger),
		action.WithPublisher(publisher),
		action.WithClock(o.now),
	}
	if o.registerer != nil {
		dopts = append(dopts, action.WithRecorder(NewPrometheusRecorder(o.registerer)))
	}
	if svc.dispatcher, err = action.NewDispatcher(svc.stores.List, action.Handlers(deps), dopts...); err != nil {
		return nil, err
	}
	o.logger.Info("anchorcore service ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("lock", cfg.Lock.Driver),
		zap.String("events", cfg.Events.Driver),
		zap.Int("assets", len(svc.assets.List())))
	return svc, nil
}

func loadAssets(path string) (*asset.Registry, error) {
	if path == "" {
		return asset.NewRegistry()
	}
	return asset.LoadFile(path)
}

func (s *Service) openLocker(ctx context.Context, cfg config.LockConfig, logger *zap.Logger) (domain.Locker, error) {
	switch cfg.Driver {
	case "", "local":
		return lock.NewLocal(), nil
	case "redis":
		client := goredislib.NewClient(&goredislib.Options{Addr: cfg.RedisAddr})
		s.closers = append(s.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		opts := lock.DefaultRedisOptions()
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.Expiry > 0 {
			opts.Expiry = cfg.Expiry
		}
		return lock.NewRedis(client, opts, logger)
	default:
		return nil, fmt.Errorf("unknown lock driver %s", cfg.Driver)
	}
}

func (s *Service) openPublisher(ctx context.Context, cfg config.EventsConfig) (events.Publisher, error) {
	if cfg.Driver == "" || cfg.Driver == "none" {
		return events.Nop{}, nil
	}
	store, err := blob.Open(ctx, blob.Config{
		Driver: blobcore.Driver(cfg.Driver),
		FSRoot: cfg.FSRoot,
		S3: s3store.Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open event archive: %w", err)
	}
	s.archive = events.NewArchive(store, cfg.Prefix)
	return s.archive, nil
}

// Dispatch applies a named action. See action.Dispatcher.Dispatch.
func (s *Service) Dispatch(ctx context.Context, name string, req action.Request) (view.Transaction, error) {
	return s.dispatcher.Dispatch(ctx, name, req)
}

// Actions lists the registered action names.
func (s *Service) Actions() []string { return s.dispatcher.Actions() }

// Stores returns the protocol stores in lookup order.
func (s *Service) Stores() []domain.TransactionStore {
	return append([]domain.TransactionStore(nil), s.stores.List...)
}

// Assets returns the loaded asset registry.
func (s *Service) Assets() *asset.Registry { return s.assets }

// History returns the archived events of one transaction. It fails when no
// event archive is configured.
func (s *Service) History(ctx context.Context, protocol domain.Protocol, id string) ([]events.Event, error) {
	if s.archive == nil {
		return nil, errors.New("event archive disabled")
	}
	return s.archive.History(ctx, string(protocol), id)
}

// Close releases every resource opened by NewService.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
