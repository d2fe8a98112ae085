/*
Package redis provides a Redis-backed contract Repository.

PURPOSE:
  The production deployment this system replaces kept contract aggregates
  in a cloud document store; this implementation maps the same shape onto
  Redis: one JSON document per contract at contract:{id}, plus a per-owner
  set contracts:{ownerID} acting as the list index. A global set under the
  empty owner key tracks every contract for unscoped listing.

  Replace writes the document and both index entries in one MULTI/EXEC
  pipeline so a crash cannot leave an indexed id without a document.
*/
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/solterra/cobranza/contract"
)

const (
	docKeyPrefix   = "contract:"
	indexKeyPrefix = "contracts:"
)

// Store implements contract.Repository on Redis.
type Store struct {
	rdb *redis.Client
}

// New connects to the Redis at url (redis://...).
func New(url string) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Store{rdb: redis.NewClient(opt)}, nil
}

// NewWithClient wraps an existing client (tests use miniredis here).
func NewWithClient(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) Close() error { return s.rdb.Close() }

// Ping verifies connectivity; called once at startup.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func docKey(id string) string        { return docKeyPrefix + id }
func indexKey(ownerID string) string { return indexKeyPrefix + ownerID }

// =============================================================================
// REPOSITORY IMPLEMENTATION
// =============================================================================

func (s *Store) Get(ctx context.Context, id string) (*contract.Contract, error) {
	raw, err := s.rdb.Get(ctx, docKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, contract.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}

	var c contract.Contract
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}
	return &c, nil
}

func (s *Store) Replace(ctx context.Context, c *contract.Contract) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode contract: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, docKey(c.ID), raw, 0)
	pipe.SAdd(ctx, indexKey(""), c.ID)
	if c.OwnerID != "" {
		pipe.SAdd(ctx, indexKey(c.OwnerID), c.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replace contract: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, ownerID string) ([]*contract.Contract, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey(ownerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	docs, err := s.rdb.MGet(ctx, mapKeys(ids)...).Result()
	if err != nil {
		return nil, fmt.Errorf("load contracts: %w", err)
	}

	var out []*contract.Contract
	for i, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			// Index entry without a document: stale index, skip it.
			continue
		}
		var c contract.Contract
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, fmt.Errorf("decode contract %s: %w", ids[i], err)
		}
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].FechaRegistro.Equal(out[j].FechaRegistro) {
			return out[i].FechaRegistro.After(out[j].FechaRegistro)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, docKey(id))
	pipe.SRem(ctx, indexKey(""), id)
	if c.OwnerID != "" {
		pipe.SRem(ctx, indexKey(c.OwnerID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	return nil
}

func mapKeys(ids []string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}
	return keys
}
