// Package cache keeps tender listing pages in Redis. Every method fails open:
// when Redis is absent or erroring, callers simply go to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"tenderportal/db"
	"tenderportal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const generationKey = "tenders:gen"

// TenderPage is one cached listing result.
type TenderPage struct {
	Tenders []models.TenderView `json:"tenders"`
	Total   int                 `json:"total"`
}

type TenderCache struct {
	client redis.UniversalClient
	ttl    time.Duration

	warned atomic.Bool
}

// NewTenderCache wraps client; a nil client yields a cache that never hits.
func NewTenderCache(client redis.UniversalClient, ttl time.Duration) *TenderCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TenderCache{client: client, ttl: ttl}
}

func (c *TenderCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *TenderCache) warn(err error) {
	if c.warned.CompareAndSwap(false, true) {
		log.Printf("[cache] redis unavailable, bypassing cache: %v", err)
	}
}

func (c *TenderCache) generation(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// key is empty when the generation cannot be read; such pages are not cached.
func (c *TenderCache) key(ctx context.Context, f db.TenderFilter, contractorID *uuid.UUID) string {
	gen, err := c.generation(ctx)
	if err != nil {
		c.warn(err)
		return ""
	}
	caller := "all"
	if contractorID != nil {
		caller = contractorID.String()
	}
	return fmt.Sprintf("tenders:list:%d:%s:%s", gen, caller, FilterKey(f))
}

// FilterKey renders f deterministically.
func FilterKey(f db.TenderFilter) string {
	parts := []string{
		"p=" + strconv.Itoa(f.Page),
		"l=" + strconv.Itoa(f.Limit),
	}
	if f.Category != nil {
		parts = append(parts, "c="+string(*f.Category))
	}
	if f.State != "" {
		parts = append(parts, "st="+f.State)
	}
	if f.Status != nil {
		parts = append(parts, "s="+string(*f.Status))
	}
	if f.MinValue != nil {
		parts = append(parts, "min="+strconv.FormatFloat(*f.MinValue, 'f', -1, 64))
	}
	if f.MaxValue != nil {
		parts = append(parts, "max="+strconv.FormatFloat(*f.MaxValue, 'f', -1, 64))
	}
	if f.Search != "" {
		parts = append(parts, "q="+strings.ToLower(f.Search))
	}
	return strings.Join(parts, "&")
}

// Get returns the cached page for (f, contractorID), if any, along with the
// key it looked under. On a miss, hand that key back to Set so the page is
// stored under the generation it was read at; an Invalidate in between then
// leaves it unreachable. An empty key means the page must not be cached.
func (c *TenderCache) Get(ctx context.Context, f db.TenderFilter, contractorID *uuid.UUID) (*TenderPage, string, bool) {
	if !c.enabled() {
		return nil, "", false
	}
	key := c.key(ctx, f, contractorID)
	if key == "" {
		return nil, "", false
	}
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn(err)
		}
		return nil, key, false
	}
	page := &TenderPage{}
	if err := json.Unmarshal(b, page); err != nil {
		log.Printf("[cache] dropping corrupt entry %s: %v", key, err)
		return nil, key, false
	}
	return page, key, true
}

// Set stores page under a key returned by Get.
func (c *TenderCache) Set(ctx context.Context, key string, page *TenderPage) {
	if !c.enabled() || key == "" {
		return
	}
	b, err := json.Marshal(page)
	if err != nil {
		log.Printf("[cache] encode page: %v", err)
		return
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.warn(err)
	}
}

// Invalidate bumps the generation so every cached page becomes unreachable.
// Old entries expire on their own TTL.
func (c *TenderCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.warn(err)
	}
}
