package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	syncQueueKey  = "hedge:sync_queue"
	inFlightKey   = "hedge:inflight"
	lastSyncedKey = "hedge:last_synced"
)

// Client wraps Redis operations for the wallet sync schedule. The queue is a
// sorted set scored by due time, so a pass for a wallet becomes eligible
// once its score is in the past.
type Client struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewClient creates a new Redis queue client
func NewClient(redisURL string, logger zerolog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("redis_url", redisURL).Msg("Connected to Redis successfully")

	return &Client{
		client: client,
		logger: logger.With().Str("component", "queue").Logger(),
	}, nil
}

// Schedule adds a wallet to the queue, due at the given time. Rescheduling
// an already queued wallet just moves its due time.
func (c *Client) Schedule(ctx context.Context, addr string, due time.Time) error {
	err := c.client.ZAdd(ctx, syncQueueKey, redis.Z{
		Score:  float64(due.Unix()),
		Member: addr,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule wallet: %w", err)
	}

	c.logger.Debug().
		Str("wallet", addr).
		Time("due", due).
		Msg("Scheduled wallet for sync")

	return nil
}

// PopDue removes and returns the wallet with the earliest due time, if that
// time has passed. Returns empty when nothing is due.
func (c *Client) PopDue(ctx context.Context) (string, error) {
	result, err := c.client.ZPopMin(ctx, syncQueueKey, 1).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("failed to pop wallet from queue: %w", err)
	}
	if len(result) == 0 {
		return "", nil
	}

	wallet := result[0].Member.(string)
	if int64(result[0].Score) > time.Now().Unix() {
		// earliest entry is not due yet, put it back
		if err := c.client.ZAdd(ctx, syncQueueKey, result[0]).Err(); err != nil {
			return "", fmt.Errorf("failed to restore undue wallet: %w", err)
		}
		return "", nil
	}

	c.logger.Debug().Str("wallet", wallet).Msg("Popped wallet from queue")
	return wallet, nil
}

// SetInFlight marks a wallet as being processed by a worker
func (c *Client) SetInFlight(ctx context.Context, addr, worker string) error {
	value := fmt.Sprintf("%s,%d", worker, time.Now().Unix())
	if err := c.client.HSet(ctx, inFlightKey, addr, value).Err(); err != nil {
		return fmt.Errorf("failed to set wallet in-flight: %w", err)
	}

	c.logger.Debug().
		Str("wallet", addr).
		Str("worker", worker).
		Msg("Marked wallet as in-flight")

	return nil
}

// RemoveInFlight removes a wallet from the in-flight tracking
func (c *Client) RemoveInFlight(ctx context.Context, addr string) error {
	if err := c.client.HDel(ctx, inFlightKey, addr).Err(); err != nil {
		return fmt.Errorf("failed to remove wallet from in-flight: %w", err)
	}

	c.logger.Debug().Str("wallet", addr).Msg("Removed wallet from in-flight")
	return nil
}

// GetLastSynced retrieves the time of the last completed pass for a wallet.
// The zero time means the wallet has never been synced.
func (c *Client) GetLastSynced(ctx context.Context, addr string) (time.Time, error) {
	result, err := c.client.HGet(ctx, lastSyncedKey, addr).Result()
	if err != nil {
		if err == redis.Nil {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get last synced time: %w", err)
	}

	unix, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last synced value %q: %w", result, err)
	}
	return time.Unix(unix, 0).UTC(), nil
}

// SetLastSynced records the time of the last completed pass for a wallet
func (c *Client) SetLastSynced(ctx context.Context, addr string, at time.Time) error {
	if err := c.client.HSet(ctx, lastSyncedKey, addr, strconv.FormatInt(at.Unix(), 10)).Err(); err != nil {
		return fmt.Errorf("failed to set last synced time: %w", err)
	}
	return nil
}

// GetQueueLength returns the number of wallets in the queue
func (c *Client) GetQueueLength(ctx context.Context) (int64, error) {
	length, err := c.client.ZCard(ctx, syncQueueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return length, nil
}

// GetInFlightWallets returns all wallets currently being processed
func (c *Client) GetInFlightWallets(ctx context.Context) (map[string]string, error) {
	result, err := c.client.HGetAll(ctx, inFlightKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get in-flight wallets: %w", err)
	}
	return result, nil
}

// RequeueStuckWallets moves wallets that have been in-flight longer than the
// timeout back to the queue, due immediately.
func (c *Client) RequeueStuckWallets(ctx context.Context, timeout time.Duration) error {
	inFlight, err := c.GetInFlightWallets(ctx)
	if err != nil {
		return fmt.Errorf("failed to get in-flight wallets: %w", err)
	}

	cutoff := time.Now().Add(-timeout).Unix()
	requeuedCount := 0

	for wallet, value := range inFlight {
		parts := strings.SplitN(value, ",", 2)
		if len(parts) != 2 {
			c.logger.Warn().Str("wallet", wallet).Str("value", value).Msg("Invalid in-flight value format")
			continue
		}

		startTime, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			c.logger.Warn().Str("wallet", wallet).Str("value", value).Msg("Invalid timestamp in in-flight value")
			continue
		}

		if startTime < cutoff {
			if err := c.Schedule(ctx, wallet, time.Now()); err != nil {
				c.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to requeue stuck wallet")
				continue
			}

			if err := c.RemoveInFlight(ctx, wallet); err != nil {
				c.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to remove requeued wallet from in-flight")
			}

			requeuedCount++
			c.logger.Info().
				Str("wallet", wallet).
				Str("worker", parts[0]).
				Int64("stuck_minutes", (time.Now().Unix()-startTime)/60).
				Msg("Requeued stuck wallet")
		}
	}

	if requeuedCount > 0 {
		c.logger.Info().Int("count", requeuedCount).Msg("Requeued stuck wallets")
	}

	return nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.client.Close()
}
