package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrLoadJSON 以 JSON 存取任意值；缓存里的旧格式解不开时删掉并回源一次
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	loadRaw := func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	var out T
	b, err := c.GetOrLoad(ctx, key, ttl, loadRaw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err == nil {
		return out, nil
	}

	if err := c.Invalidate(ctx, key); err != nil {
		return out, err
	}
	b, err = c.GetOrLoad(ctx, key, ttl, loadRaw)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}
