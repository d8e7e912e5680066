package testhelpers

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type TestRedis struct {
	Container *tcredis.RedisContainer
	Client    *goredis.Client
}

func NewTestRedis(t *testing.T) *TestRedis {
	t.Helper()
	ctx := context.Background()

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %s", err)
	}

	uri, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %s", err)
	}

	opts, err := goredis.ParseURL(uri)
	if err != nil {
		t.Fatalf("failed to parse redis url: %s", err)
	}

	client := goredis.NewClient(opts)
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		t.Fatalf("failed to ping redis: %s", pingErr)
	}

	return &TestRedis{
		Container: redisContainer,
		Client:    client,
	}
}

func (tr *TestRedis) Close() {
	_ = tr.Client.Close()
	_ = tr.Container.Terminate(context.Background())
}
