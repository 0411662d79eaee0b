package streams

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Consumer reads envelopes from a Redis Streams consumer group. Entries that
// cannot be decoded or fail their schema are acked and dropped so they do not
// block the group.
type Consumer struct {
	client   redis.Cmdable
	registry *SchemaRegistry
	group    string
	name     string
	logger   *log.Logger
}

// ConsumerOption configures a single read.
type ConsumerOption func(*redis.XReadGroupArgs)

// WithBlock sets how long a read may wait for new entries.
func WithBlock(d time.Duration) ConsumerOption {
	return func(args *redis.XReadGroupArgs) {
		if d > 0 {
			args.Block = d
		}
	}
}

// WithCount caps the entries returned by one read.
func WithCount(n int64) ConsumerOption {
	return func(args *redis.XReadGroupArgs) {
		if n > 0 {
			args.Count = n
		}
	}
}

func NewConsumer(client redis.Cmdable, registry *SchemaRegistry, group, name string, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.Default()
	}
	return &Consumer{client: client, registry: registry, group: group, name: name, logger: logger}
}

// EnsureGroup creates the group (and the stream) when missing.
func EnsureGroup(ctx context.Context, client redis.Cmdable, stream, group string) error {
	if stream == "" || group == "" {
		return fmt.Errorf("stream and group must be provided")
	}
	if err := client.XGroupCreateMkStream(ctx, stream, group, "0").Err(); err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("xgroup create: %w", err)
	}
	return nil
}

// Message is a decoded stream entry.
type Message struct {
	ID       string
	Envelope Envelope
}

// Read fetches new entries for this consumer.
func (c *Consumer) Read(ctx context.Context, stream string, opts ...ConsumerOption) ([]Message, error) {
	if err := c.check(stream); err != nil {
		return nil, err
	}
	args := &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  []string{stream, ">"},
	}
	for _, opt := range opts {
		opt(args)
	}

	res, err := c.client.XReadGroup(ctx, args).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	var out []Message
	for _, st := range res {
		for _, msg := range st.Messages {
			if decoded, ok := c.decode(ctx, stream, msg); ok {
				out = append(out, decoded)
			}
		}
	}
	return out, nil
}

// AutoClaim takes over entries another consumer left pending for longer
// than minIdle. Pass the returned cursor back in to continue.
func (c *Consumer) AutoClaim(ctx context.Context, stream string, minIdle time.Duration, start string, count int64) ([]Message, string, error) {
	if err := c.check(stream); err != nil {
		return nil, "", err
	}
	if start == "" {
		start = "0-0"
	}
	args := &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    c.group,
		Consumer: c.name,
		MinIdle:  minIdle,
		Start:    start,
	}
	if count > 0 {
		args.Count = count
	}
	msgs, next, err := c.client.XAutoClaim(ctx, args).Result()
	if err != nil {
		return nil, "", fmt.Errorf("xautoclaim: %w", err)
	}
	var out []Message
	for _, msg := range msgs {
		if decoded, ok := c.decode(ctx, stream, msg); ok {
			out = append(out, decoded)
		}
	}
	return out, next, nil
}

func (c *Consumer) Ack(ctx context.Context, stream string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, stream, c.group, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// Lag reports pending and lag counts for the group.
func (c *Consumer) Lag(ctx context.Context, stream string) (LagMetrics, error) {
	return GroupLag(ctx, c.client, stream, c.group)
}

func (c *Consumer) check(stream string) error {
	if stream == "" {
		return fmt.Errorf("stream name is required")
	}
	if c.group == "" || c.name == "" {
		return fmt.Errorf("consumer group and name must be configured")
	}
	return nil
}

func (c *Consumer) decode(ctx context.Context, stream string, msg redis.XMessage) (Message, bool) {
	env, err := decodeEntry(msg.Values)
	if err == nil && c.registry != nil {
		err = c.registry.Validate(env.EventType, env.PayloadVersion, env.Data)
	}
	if err != nil {
		c.logger.Printf("warn: dropping stream entry %s: %v", msg.ID, err)
		if ackErr := c.client.XAck(ctx, stream, c.group, msg.ID).Err(); ackErr != nil {
			c.logger.Printf("warn: ack dropped entry %s: %v", msg.ID, ackErr)
		}
		return Message{}, false
	}
	return Message{ID: msg.ID, Envelope: env}, true
}

func decodeEntry(values map[string]interface{}) (Envelope, error) {
	raw, ok := values["envelope"]
	if !ok {
		return Envelope{}, fmt.Errorf("entry has no envelope field")
	}
	switch v := raw.(type) {
	case string:
		return UnmarshalEnvelope([]byte(v))
	case []byte:
		return UnmarshalEnvelope(v)
	default:
		return Envelope{}, fmt.Errorf("unexpected envelope type %T", raw)
	}
}
