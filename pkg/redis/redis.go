package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IRedis tracks the advisory "a device is working on this link" claim. The
// claim is a soft liveness hint for dashboards and duplicate-tab warnings;
// the conditional write in the session store is what actually prevents a
// double commit.
type IRedis interface {
	ClaimProcessing(ctx context.Context, linkCode string, deviceRef string, expiration time.Duration) (bool, error)
	GetProcessingOwner(ctx context.Context, linkCode string) (string, error)
	ReleaseProcessing(ctx context.Context, linkCode string) error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func processingKey(linkCode string) string {
	return "scan:processing:" + linkCode
}

// ClaimProcessing marks the link as being worked on by deviceRef. Returns
// false when another device already holds a live claim.
func (r *redisClient) ClaimProcessing(ctx context.Context, linkCode string, deviceRef string, expiration time.Duration) (bool, error) {
	logrus.Debug(fmt.Sprintf("Claiming processing for link %s with expiration %v", linkCode, expiration))
	ok, err := r.client.SetNX(ctx, processingKey(linkCode), deviceRef, expiration).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error claiming processing for link %s: %v", linkCode, err))
		return false, err
	}
	if !ok {
		logrus.Debug(fmt.Sprintf("Processing already claimed for link %s", linkCode))
	}
	return ok, nil
}

func (r *redisClient) GetProcessingOwner(ctx context.Context, linkCode string) (string, error) {
	val, err := r.client.Get(ctx, processingKey(linkCode)).Result()
	if errors.Is(err, redis.Nil) {
		return "", err
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting processing owner for link %s: %v", linkCode, err))
		return "", err
	}
	return val, nil
}

// ReleaseProcessing drops the claim after a terminal write so a fresh link
// reusing the same code prefix never inherits a stale owner.
func (r *redisClient) ReleaseProcessing(ctx context.Context, linkCode string) error {
	logrus.Debug(fmt.Sprintf("Releasing processing claim for link %s", linkCode))
	result, err := r.client.Del(ctx, processingKey(linkCode)).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error releasing processing claim for link %s: %v", linkCode, err))
		return err
	}

	if result == 0 {
		logrus.Debug(fmt.Sprintf("No processing claim found for link %s", linkCode))
		return nil
	}

	return nil
}
