// Package modelstore persists per-seller model bundles and their evaluation
// stats in a key-value blob store. Backends (filesystem, Redis, S3, memory)
// only move bytes; encoding lives here.
package modelstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/mbd888/sellerrisk/internal/model"
)

var (
	ErrNotFound      = errors.New("model artifact not found")
	ErrInvalidSeller = errors.New("invalid seller id")
)

// Blobs is a flat key-value store. Put must replace atomically: a reader
// sees either the old or the new value, never a partial write. Get returns
// ErrNotFound for absent keys.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Store reads and writes model artifacts keyed by seller id.
type Store struct {
	blobs Blobs
}

// New wraps a blob backend.
func New(blobs Blobs) *Store {
	return &Store{blobs: blobs}
}

// Ping checks the backend when it supports a connectivity probe.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.blobs.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

var sellerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// BundleKey is the blob key of a seller's model bundle.
func BundleKey(sellerID string) string {
	return "model_" + sellerID + ".json"
}

// StatsKey is the blob key of a seller's evaluation stats.
func StatsKey(sellerID string) string {
	return "model_" + sellerID + "_stats.json"
}

func checkSeller(sellerID string) error {
	if !sellerIDPattern.MatchString(sellerID) {
		return fmt.Errorf("%w: %q", ErrInvalidSeller, sellerID)
	}
	return nil
}

// SaveBundle persists b under its seller id.
func (s *Store) SaveBundle(ctx context.Context, b *model.Bundle) error {
	if err := checkSeller(b.SellerID); err != nil {
		return err
	}
	data, err := b.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}
	return s.blobs.Put(ctx, BundleKey(b.SellerID), data)
}

// LoadBundle returns the seller's bundle or ErrNotFound.
func (s *Store) LoadBundle(ctx context.Context, sellerID string) (*model.Bundle, error) {
	if err := checkSeller(sellerID); err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, BundleKey(sellerID))
	if err != nil {
		return nil, err
	}
	b, err := model.UnmarshalBundle(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bundle for %s: %w", sellerID, err)
	}
	return b, nil
}

// SaveStats persists the evaluation stats side-car.
func (s *Store) SaveStats(ctx context.Context, st *model.Stats) error {
	if err := checkSeller(st.SellerID); err != nil {
		return err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	return s.blobs.Put(ctx, StatsKey(st.SellerID), data)
}

// LoadStats returns the seller's evaluation stats or ErrNotFound.
func (s *Store) LoadStats(ctx context.Context, sellerID string) (*model.Stats, error) {
	if err := checkSeller(sellerID); err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, StatsKey(sellerID))
	if err != nil {
		return nil, err
	}
	var st model.Stats
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode stats for %s: %w", sellerID, err)
	}
	return &st, nil
}
