package rediscache

import (
	"context"
	"time"
)

const tokenKeyPrefix = "ebay:token:"

// TokenKey names the cached access token of one eBay account.
func TokenKey(account string) string {
	return tokenKeyPrefix + account
}

func (r *RedisCache) Token(ctx context.Context, key string) (string, bool, error) {
	b, ok, err := r.Get(ctx, key)
	if err != nil || !ok || len(b) == 0 {
		return "", false, err
	}
	return string(b), true, nil
}

func (r *RedisCache) SetToken(ctx context.Context, key, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.Set(ctx, key, []byte(token), ttl)
}
