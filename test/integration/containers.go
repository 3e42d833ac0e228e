package integration

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// Env is a disposable copy of every backing service the api needs.
type Env struct {
	PG       *postgres.PostgresContainer
	Mongo    *mongodb.MongoDBContainer
	Redis    *redis.RedisContainer
	Kafka    *kafka.KafkaContainer
	PGURL    string
	MongoURL string
	RedisURL string
	KAddr    []string
	Cancel   context.CancelFunc
}

func Setup(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("marketplace"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		cancel()
		return nil, err
	}

	mongoC, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		cancel()
		return nil, err
	}
	mongoURL, err := mongoC.ConnectionString(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	redisC, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		cancel()
		return nil, err
	}
	redisURL, err := redisC.ConnectionString(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("marketplace-test"),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	kAddr, err := kafkaC.Brokers(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Env{
		PG:       pgC,
		Mongo:    mongoC,
		Redis:    redisC,
		Kafka:    kafkaC,
		PGURL:    pgURL,
		MongoURL: mongoURL,
		RedisURL: redisURL,
		KAddr:    kAddr,
		Cancel:   cancel,
	}, nil
}

func (e *Env) Teardown(ctx context.Context) {
	e.Cancel()
	_ = e.Kafka.Terminate(ctx)
	_ = e.Redis.Terminate(ctx)
	_ = e.Mongo.Terminate(ctx)
	_ = e.PG.Terminate(ctx)
}
