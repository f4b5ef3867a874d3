package action

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"anchorcore/internal/events"
	"anchorcore/internal/infra/lock"
	"anchorcore/internal/view"
	"anchorcore/pkg/domain"
)

// Outcome labels reported to a Recorder.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// unknownActionLabel replaces unregistered action names in metrics.
const unknownActionLabel = "unknown"

// Recorder observes every dispatched action.
type Recorder interface {
	ObserveAction(action, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAction(string, string, time.Duration) {}

// Dispatcher routes a named action to its handler after locating the target
// transaction in the first store that holds it.
type Dispatcher struct {
	stores    []domain.TransactionStore
	handlers  map[string]Handler
	locker    domain.Locker
	logger    *zap.Logger
	recorder  Recorder
	publisher events.Publisher
	now       func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLocker replaces the in-process per-id lock.
func WithLocker(l domain.Locker) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.locker = l
		}
	}
}

// WithLogger sets the logger used for per-action outcome lines.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithPublisher sets where status change events go after a successful action.
func WithPublisher(p events.Publisher) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.publisher = p
		}
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher builds a dispatcher over stores, queried in the given order,
// and handlers, keyed by their action name.
func NewDispatcher(stores []domain.TransactionStore, handlers []Handler, opts ...Option) (*Dispatcher, error) {
	if len(stores) == 0 {
		return nil, errors.New("dispatcher: at least one transaction store required")
	}
	d := &Dispatcher{
		stores:    append([]domain.TransactionStore(nil), stores...),
		handlers:  make(map[string]Handler, len(handlers)),
		locker:    lock.NewLocal(),
		logger:    zap.NewNop(),
		recorder:  nopRecorder{},
		publisher: events.Nop{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, h := range handlers {
		name := h.Action()
		if _, dup := d.handlers[name]; dup {
			return nil, fmt.Errorf("dispatcher: action %s registered twice", name)
		}
		d.handlers[name] = h
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Actions lists the registered action names in lexical order.
func (d *Dispatcher) Actions() []string {
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch applies action to the transaction named by req.TransactionID.
// Handler errors are returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, action string, req Request) (view.Transaction, error) {
	start := time.Now()
	id := strings.TrimSpace(req.TransactionID)
	if id == "" {
		err := domain.NewInvalidParams("transaction_id is required")
		d.observe(action, nil, start, err)
		return view.Transaction{}, err
	}

	var (
		result view.Transaction
		found  *domain.Transaction
	)
	err := d.locker.WithLock(ctx, id, func(ctx context.Context) error {
		txn, err := d.find(ctx, id)
		if err != nil {
			return err
		}
		found = txn
		h, ok := d.handlers[action]
		if !ok {
			return domain.UnknownActionError{Action: action}
		}
		result, err = h.Handle(ctx, txn, req)
		return err
	})
	d.observe(action, found, start, err)
	if err != nil {
		return view.Transaction{}, err
	}

	evt := events.NewStatusChanged(action, found.Status, result, d.now())
	if perr := d.publisher.Publish(ctx, evt); perr != nil {
		d.logger.Error("publish status change",
			zap.String("action", action),
			zap.String("transaction_id", id),
			zap.String("event_id", evt.ID),
			zap.Error(perr))
	}
	return result, nil
}

func (d *Dispatcher) find(ctx context.Context, id string) (*domain.Transaction, error) {
	for _, s := range d.stores {
		txn, err := s.FindByTransactionID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find transaction %s in sep%s store: %w", id, s.Protocol(), err)
		}
		if txn != nil {
			if err := s.Protocol().Owns(txn); err != nil {
				return nil, fmt.Errorf("find transaction %s in sep%s store: %w", id, s.Protocol(), err)
			}
			return txn, nil
		}
	}
	return nil, domain.NotFoundError{ID: id}
}

func (d *Dispatcher) observe(action string, txn *domain.Transaction, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := Outcome(err)
	label := action
	if _, ok := d.handlers[action]; !ok {
		label = unknownActionLabel
	}
	d.recorder.ObserveAction(label, outcome, elapsed)

	fields := []zap.Field{
		zap.String("action", action),
		zap.String("outcome", outcome),
		zap.Duration("duration", elapsed),
	}
	if txn != nil {
		fields = append(fields,
			zap.String("transaction_id", txn.ID),
			zap.String("protocol", string(txn.Protocol)),
			zap.String("status", string(txn.Status)))
	}
	var categorized domain.CategorizedError
	switch {
	case err == nil:
		d.logger.Info("action applied", fields...)
	case errors.As(err, &categorized):
		d.logger.Warn("action rejected", append(fields, zap.Error(err))...)
	default:
		d.logger.Error("action failed", append(fields, zap.Error(err))...)
	}
}

// Outcome maps an action error to its metrics label: OutcomeOK, the error's
// category, or OutcomeError for infrastructure failures.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var categorized domain.CategorizedError
	if errors.As(err, &categorized) {
		return string(categorized.Category())
	}
	return OutcomeError
}
