package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"taskhub/internal/models"
	"taskhub/pkg/crypto"
)

const entityTTL = time.Hour

// Cache is a read-through entity cache over Redis. Bodies are AES-encrypted
// before they leave the process since cached accounts carry PII and the
// Redis instance may be shared. Every method degrades silently: a cache
// failure always falls back to the database.
type Cache struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client, encryptionKey string) *Cache {
	return &Cache{client: client, key: encryptionKey}
}

func (c *Cache) get(ctx context.Context, key string, out any) bool {
	if c == nil || c.client == nil {
		return false
	}
	sealed, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	raw, err := crypto.Decrypt(sealed, c.key)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	sealed, err := crypto.Encrypt(string(raw), c.key)
	if err != nil {
		return
	}
	c.client.SetEX(ctx, key, sealed, entityTTL)
}

func (c *Cache) drop(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Del(ctx, key)
}

func userKey(id int) string { return fmt.Sprintf("user:%d", id) }
func taskKey(id int) string { return fmt.Sprintf("task:%d", id) }

func (c *Cache) GetUser(ctx context.Context, id int) (models.User, bool) {
	var u models.User
	ok := c.get(ctx, userKey(id), &u)
	return u, ok
}

func (c *Cache) SetUser(ctx context.Context, u models.User) {
	c.set(ctx, userKey(u.ID), u)
}

func (c *Cache) DropUser(ctx context.Context, id int) {
	c.drop(ctx, userKey(id))
}

func (c *Cache) GetTask(ctx context.Context, id int) (models.Task, bool) {
	var t models.Task
	ok := c.get(ctx, taskKey(id), &t)
	return t, ok
}

func (c *Cache) SetTask(ctx context.Context, t models.Task) {
	c.set(ctx, taskKey(t.ID), t)
}

func (c *Cache) DropTask(ctx context.Context, id int) {
	c.drop(ctx, taskKey(id))
}
