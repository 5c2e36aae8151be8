package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"mercadinho/backend/internal/backup"
	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/snapshot"
	"mercadinho/backend/internal/store"
)

func (s *Service) ExportSnapshot() ([]byte, error) {
	state := s.State()
	return snapshot.Marshal(snapshot.Serialize(state, s.now()))
}

// RestoreSnapshot replaces products, sales, expenses and customers with the
// document's content. Settings and nothing else survive; the cart is emptied.
func (s *Service) RestoreSnapshot(ctx context.Context, raw []byte, confirm bool) (domain.RestoreResponse, error) {
	if !confirm {
		return domain.RestoreResponse{}, ErrConfirmationRequired
	}

	var resp domain.RestoreResponse
	err := s.run(ctx, OpRestoreBackup, func() error {
		var err error
		resp, err = s.restore(ctx, raw)
		return err
	})
	return resp, err
}

func (s *Service) restore(ctx context.Context, raw []byte) (domain.RestoreResponse, error) {
	restored, err := snapshot.Restore(raw)
	if err != nil {
		return domain.RestoreResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Products = restored.Products
	s.state.Sales = restored.Sales
	s.state.Expenses = restored.Expenses
	s.state.Customers = restored.Customers
	s.cart = nil
	s.persistLocked(ctx, store.KeyProducts, store.KeySales, store.KeyExpenses, store.KeyCustomers)

	resp := domain.RestoreResponse{
		Products:  len(restored.Products),
		Sales:     len(restored.Sales),
		Expenses:  len(restored.Expenses),
		Customers: len(restored.Customers),
	}
	s.audit("restore_snapshot", logrus.Fields{
		"products":  resp.Products,
		"sales":     resp.Sales,
		"expenses":  resp.Expenses,
		"customers": resp.Customers,
	})
	return resp, nil
}

func (s *Service) BackupToCloud(ctx context.Context) (domain.CloudBackup, error) {
	var uploaded domain.CloudBackup
	err := s.run(ctx, OpCloudBackup, func() error {
		now := s.now()
		payload, err := snapshot.Marshal(snapshot.Serialize(s.State(), now))
		if err != nil {
			return err
		}
		name := backup.ObjectName(now)
		if err := s.backup.Upload(ctx, name, payload); err != nil {
			return err
		}
		uploaded = domain.CloudBackup{Name: name, Size: int64(len(payload)), UpdatedAt: now.UTC()}
		return nil
	})
	if err != nil {
		return domain.CloudBackup{}, err
	}

	s.audit("cloud_backup", logrus.Fields{"object": uploaded.Name, "size": uploaded.Size})
	return uploaded, nil
}

func (s *Service) ListCloudBackups(ctx context.Context) ([]domain.CloudBackup, error) {
	return s.backup.List(ctx, backup.ObjectPrefix)
}

// RestoreFromCloud restores the named object, or the newest one when name is empty.
func (s *Service) RestoreFromCloud(ctx context.Context, name string, confirm bool) (domain.RestoreResponse, error) {
	if !confirm {
		return domain.RestoreResponse{}, ErrConfirmationRequired
	}
	if name != "" && !backup.ValidName(name) {
		return domain.RestoreResponse{}, domain.Invalid("name", "is not a backup object name")
	}

	var resp domain.RestoreResponse
	err := s.run(ctx, OpRestoreBackup, func() error {
		if name == "" {
			items, err := s.backup.List(ctx, backup.ObjectPrefix)
			if err != nil {
				return err
			}
			newest, ok := backup.Newest(items)
			if !ok {
				return fmt.Errorf("cloud backup: %w", ErrNotFound)
			}
			name = newest.Name
		}

		raw, err := s.backup.Download(ctx, name)
		if errors.Is(err, backup.ErrNotFound) {
			return fmt.Errorf("cloud backup %s: %w", name, ErrNotFound)
		}
		if err != nil {
			return err
		}
		resp, err = s.restore(ctx, raw)
		return err
	})
	return resp, err
}
