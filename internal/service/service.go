package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mercadinho/backend/internal/backup"
	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/extraction"
	"mercadinho/backend/internal/guard"
	"mercadinho/backend/internal/insights"
	"mercadinho/backend/internal/logger"
	"mercadinho/backend/internal/store"
)

var (
	ErrNotFound             = store.ErrNotFound
	ErrEmptyCart            = errors.New("cart is empty")
	ErrMissingCustomer      = errors.New("customer is required for credit sales")
	ErrCustomerHasDebt      = errors.New("customer has outstanding debt")
	ErrConfirmationRequired = errors.New("restore must be confirmed")
)

// Names of the guarded operations, reported by Status while they run.
const (
	OpFinalizeSale    = "finalize-sale"
	OpReverseSale     = "reverse-sale"
	OpRegisterPayment = "register-payment"
	OpImportStock     = "import-stock"
	OpScanInvoice     = "scan-invoice"
	OpScanExpense     = "scan-expense"
	OpIdentifyProduct = "identify-product"
	OpInsights        = "insights"
	OpRestoreBackup   = "restore-backup"
	OpCloudBackup     = "cloud-backup"
)

type Options struct {
	KV            store.KV
	KeyPrefix     string
	Guard         guard.Guard
	Extractor     extraction.Extractor
	Insights      *insights.Engine
	Backup        backup.Storage
	Logger        logrus.FieldLogger
	DefaultMargin decimal.Decimal
	PhoneRegion   string
	Location      *time.Location
	Now           func() time.Time
}

// Service owns the store state. Every mutation happens under mu and is
// written through to the key-value store before mu is released.
type Service struct {
	mu    sync.Mutex
	state domain.State
	cart  []domain.SaleItem

	kv          store.KV
	keyPrefix   string
	guard       guard.Guard
	extractor   extraction.Extractor
	insights    *insights.Engine
	backup      backup.Storage
	logger      logrus.FieldLogger
	phoneRegion string
	location    *time.Location
	now         func() time.Time
}

func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.KV == nil {
		return nil, errors.New("service: key-value store is required")
	}
	if opts.Guard == nil {
		opts.Guard = guard.NewLocal()
	}
	if opts.Extractor == nil {
		opts.Extractor = extraction.Disabled{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	if opts.Insights == nil {
		opts.Insights = insights.NewEngine(opts.Extractor, nil, 0, opts.KeyPrefix, opts.Logger)
	}
	if opts.Backup == nil {
		opts.Backup = backup.Disabled{}
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = "BR"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultMargin.IsZero() {
		opts.DefaultMargin = decimal.NewFromInt(35)
	}

	s := &Service{
		kv:          opts.KV,
		keyPrefix:   opts.KeyPrefix,
		guard:       opts.Guard,
		extractor:   opts.Extractor,
		insights:    opts.Insights,
		backup:      opts.Backup,
		logger:      opts.Logger,
		phoneRegion: opts.PhoneRegion,
		location:    opts.Location,
		now:         opts.Now,
	}

	state, err := s.loadState(ctx, opts.DefaultMargin)
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

func (s *Service) Status() domain.StatusResponse {
	return domain.StatusResponse{Busy: s.guard.Active()}
}

// State returns a deep copy of the current state.
func (s *Service) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Service) loadState(ctx context.Context, defaultMargin decimal.Decimal) (domain.State, error) {
	state := domain.State{
		Products:  []domain.Product{},
		Sales:     []domain.Sale{},
		Expenses:  []domain.Expense{},
		Customers: []domain.Customer{},
		Settings:  domain.Settings{DefaultMarginPercent: defaultMargin},
	}

	targets := []struct {
		key  string
		dest any
	}{
		{store.KeyProducts, &state.Products},
		{store.KeySales, &state.Sales},
		{store.KeyExpenses, &state.Expenses},
		{store.KeyCustomers, &state.Customers},
		{store.KeySettings, &state.Settings},
	}
	for _, target := range targets {
		raw, err := s.kv.Load(ctx, s.keyPrefix+target.key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return domain.State{}, fmt.Errorf("load %s: %w", target.key, err)
		}
		if err := json.Unmarshal(raw, target.dest); err != nil {
			return domain.State{}, fmt.Errorf("decode %s: %w", target.key, err)
		}
	}

	if state.Products == nil {
		state.Products = []domain.Product{}
	}
	if state.Sales == nil {
		state.Sales = []domain.Sale{}
	}
	if state.Expenses == nil {
		state.Expenses = []domain.Expense{}
	}
	if state.Customers == nil {
		state.Customers = []domain.Customer{}
	}
	if state.Settings.DefaultMarginPercent.IsZero() {
		state.Settings.DefaultMarginPercent = defaultMargin
	}
	return state, nil
}

// persistLocked writes the named collections in one batch. Failures are
// logged and never undo the in-memory change. Callers hold s.mu.
func (s *Service) persistLocked(ctx context.Context, keys ...string) {
	entries := make([]store.Entry, 0, len(keys))
	for _, key := range keys {
		var value any
		switch key {
		case store.KeyProducts:
			value = s.state.Products
		case store.KeySales:
			value = s.state.Sales
		case store.KeyExpenses:
			value = s.state.Expenses
		case store.KeyCustomers:
			value = s.state.Customers
		case store.KeySettings:
			value = s.state.Settings
		default:
			continue
		}
		payload, err := json.Marshal(value)
		if err != nil {
			logger.LogError(s.logger, "service", "persistLocked", "encode "+key, nil, err)
			return
		}
		entries = append(entries, store.Entry{Key: s.keyPrefix + key, Value: payload})
	}

	if err := s.kv.SaveAll(context.WithoutCancel(ctx), entries); err != nil {
		s.logger.WithFields(logrus.Fields{
			"module": "service",
			"keys":   keys,
			"error":  err.Error(),
		}).Warn("write-through failed, state kept in memory")
	}
}

// run holds the busy flag for name while fn executes.
func (s *Service) run(ctx context.Context, name string, fn func() error) error {
	release, err := s.guard.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (s *Service) audit(action string, fields logrus.Fields) {
	entry := s.logger.WithField("module", "service").WithField("action", action)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Info("state changed")
}

func (s *Service) today() string {
	return s.now().In(s.location).Format(domain.DateLayout)
}
