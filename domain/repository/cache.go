package repository

import (
	"context"
	"time"
)

// ICache is the TTL key-value store consumed by the state store. GetDel must
// be atomic with respect to concurrent callers presenting the same key: at
// most one caller observes the value, everyone else gets found=false. The
// Redis implementation maps this onto a single GETDEL round trip.
type ICache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	GetDel(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
}
