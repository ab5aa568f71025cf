package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/regflow/internal/client/models"
	"github.com/dmitrijs2005/regflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/regflow/internal/common"
)

const (
	keyAccountID = "account_id"
	keyEmail     = "email"
	keyImageURL  = "image_url"
)

// ReceiptStore keeps the last registration in the local metadata store.
type ReceiptStore struct {
	repo metadata.Repository
}

func NewReceiptStore(repo metadata.Repository) *ReceiptStore {
	return &ReceiptStore{repo: repo}
}

func (s *ReceiptStore) Save(ctx context.Context, r models.Receipt) error {
	err := s.repo.SetMany(ctx, map[string]string{
		keyAccountID: r.AccountID,
		keyEmail:     r.Email,
		keyImageURL:  r.ImageURL,
	})
	if err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}
	return nil
}

// Load returns the saved receipt or common.ErrNotFound.
func (s *ReceiptStore) Load(ctx context.Context) (*models.Receipt, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load receipt: %w", err)
	}
	id, ok := all[keyAccountID]
	if !ok || id == "" {
		return nil, common.ErrNotFound
	}
	return &models.Receipt{AccountID: id, Email: all[keyEmail], ImageURL: all[keyImageURL]}, nil
}

func (s *ReceiptStore) Clear(ctx context.Context) error {
	for _, k := range []string{keyAccountID, keyEmail, keyImageURL} {
		if err := s.repo.Delete(ctx, k); err != nil && !errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("clear receipt: %w", err)
		}
	}
	return nil
}
