// Package cache provides caching decorators for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/mkarlis/go-users-backend/internal/domain"
	"github.com/mkarlis/go-users-backend/internal/repo"
	"github.com/mkarlis/go-users-backend/internal/services"
)

// CachingUserRepo decorates a services.UserRepo with Redis read-through
// caching. Reads are served from Redis when possible; any mutation
// invalidates the whole namespace so stale pages and counts never leak.
// A nil Redis client disables caching entirely (pass-through).
type CachingUserRepo struct {
	inner     services.UserRepo
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingUserRepo decorates a UserRepo with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "users".
func NewCachingUserRepo(rdb *redis.Client, ttl time.Duration, inner services.UserRepo, namespace string) *CachingUserRepo {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "users"
	}
	return &CachingUserRepo{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// CreateUser inserts through the underlying repo and invalidates the namespace.
func (c *CachingUserRepo) CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if err := c.inner.CreateUser(ctx, db, u); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// UpdateUser applies a partial update through the underlying repo and
// invalidates the namespace.
func (c *CachingUserRepo) UpdateUser(ctx context.Context, db *gorm.DB, id int64, fields map[string]any) (*domain.User, error) {
	u, err := c.inner.UpdateUser(ctx, db, id, fields)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return u, nil
}

// DeleteUser removes through the underlying repo and invalidates the namespace.
func (c *CachingUserRepo) DeleteUser(ctx context.Context, db *gorm.DB, id int64) error {
	if err := c.inner.DeleteUser(ctx, db, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

// GetUser retrieves a user by id, checking the cache first.
func (c *CachingUserRepo) GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	key := fmt.Sprintf("%s:id:%d", c.namespace, id)
	var out domain.User
	if c.readCached(ctx, key, &out) {
		return &out, nil
	}
	u, err := c.inner.GetUser(ctx, db, id)
	if err != nil {
		return nil, err
	}
	c.writeCached(ctx, key, u)
	return u, nil
}

// GetUserByEmail retrieves a user by email, checking the cache first.
func (c *CachingUserRepo) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	key := fmt.Sprintf("%s:email:%s", c.namespace, safeKey(email))
	var out domain.User
	if c.readCached(ctx, key, &out) {
		return &out, nil
	}
	u, err := c.inner.GetUserByEmail(ctx, db, email)
	if err != nil {
		return nil, err
	}
	c.writeCached(ctx, key, u)
	return u, nil
}

// ListUsers retrieves a page of users, checking the cache first.
func (c *CachingUserRepo) ListUsers(ctx context.Context, db *gorm.DB, f repo.ListFilter) ([]domain.User, error) {
	key := c.listKey(f)
	var out []domain.User
	if c.readCached(ctx, key, &out) {
		return out, nil
	}
	out, err := c.inner.ListUsers(ctx, db, f)
	if err != nil {
		return nil, err
	}
	c.writeCached(ctx, key, out)
	return out, nil
}

// CountUsers retrieves the matching row count, checking the cache first.
func (c *CachingUserRepo) CountUsers(ctx context.Context, db *gorm.DB, isActive *bool) (int64, error) {
	key := fmt.Sprintf("%s:count:%s", c.namespace, boolKey(isActive))
	var out int64
	if c.readCached(ctx, key, &out) {
		return out, nil
	}
	out, err := c.inner.CountUsers(ctx, db, isActive)
	if err != nil {
		return 0, err
	}
	c.writeCached(ctx, key, out)
	return out, nil
}

// readCached loads key into dst. Returns false on miss, disabled cache,
// or a corrupted entry (which it deletes).
func (c *CachingUserRepo) readCached(ctx context.Context, key string, dst any) bool {
	if c.rdb == nil {
		return false
	}
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil || len(b) == 0 {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		_ = c.rdb.Del(ctx, key).Err()
		return false
	}
	return true
}

// writeCached stores v under key, best effort.
func (c *CachingUserRepo) writeCached(ctx context.Context, key string, v any) {
	if c.rdb == nil {
		return
	}
	if b, err := json.Marshal(v); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
}

// invalidate drops every key in the namespace, best effort. Mutations are
// rare relative to reads, so a coarse flush beats tracking dependent keys.
func (c *CachingUserRepo) invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	_ = c.deleteByPattern(ctx, c.namespace+":*")
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingUserRepo) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// listKey encodes every list parameter so distinct pages never collide.
func (c *CachingUserRepo) listKey(f repo.ListFilter) string {
	return fmt.Sprintf("%s:list:%d:%d:%s:%s:%s",
		c.namespace,
		f.Limit,
		f.Offset,
		boolKey(f.IsActive),
		safeKey(f.OrderBy),
		safeKey(f.Sort),
	)
}

func boolKey(b *bool) string {
	if b == nil {
		return "any"
	}
	if *b {
		return "true"
	}
	return "false"
}

// safeKey escapes characters that are problematic for Redis keys.
func safeKey(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
