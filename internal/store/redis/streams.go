// Package redis carries the bridge's stream boundary: block submissions
// flowing in from the ingestion collaborator and settlement events
// flowing out to the signing stage and monitoring.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

const payloadField = "payload"

// checkpointStart is the stream ID consumption begins from on a fresh
// deployment.
const checkpointStart = "0-0"

type Client struct {
	rdb *redis.Client
}

func New(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func submissionStream(chain model.Chain, network model.Network) string {
	return fmt.Sprintf("bridge:submissions:%s:%s", chain, network)
}

func eventStream(chain model.Chain, network model.Network) string {
	return fmt.Sprintf("bridge:events:%s:%s", chain, network)
}

func checkpointKey(chain model.Chain, network model.Network) string {
	return fmt.Sprintf("bridge:submissions:%s:%s:checkpoint", chain, network)
}

// Entry is one raw submission read off the stream. ID doubles as the
// checkpoint token.
type Entry struct {
	ID      string
	Payload []byte
}

func decodeEntry(msg redis.XMessage) (Entry, error) {
	raw, ok := msg.Values[payloadField]
	if !ok {
		return Entry{}, fmt.Errorf("stream entry %s: missing %s field", msg.ID, payloadField)
	}
	payload, ok := raw.(string)
	if !ok {
		return Entry{}, fmt.Errorf("stream entry %s: %s is %T, want string", msg.ID, payloadField, raw)
	}
	return Entry{ID: msg.ID, Payload: []byte(payload)}, nil
}

// SubmissionQueue reads block submissions for one chain, checkpointing
// the last fully processed stream ID so a restart resumes where the
// previous process stopped.
type SubmissionQueue struct {
	client  *Client
	chain   model.Chain
	network model.Network
}

func NewSubmissionQueue(client *Client, chain model.Chain, network model.Network) *SubmissionQueue {
	return &SubmissionQueue{client: client, chain: chain, network: network}
}

// Publish appends a submission payload; used by ingestion tooling and
// tests, the settlement process itself only reads.
func (q *SubmissionQueue) Publish(ctx context.Context, payload []byte) (string, error) {
	id, err := q.client.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: submissionStream(q.chain, q.network),
		Values: map[string]any{payloadField: payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish submission: %w", err)
	}
	return id, nil
}

// Checkpoint returns the last committed stream ID.
func (q *SubmissionQueue) Checkpoint(ctx context.Context) (string, error) {
	id, err := q.client.rdb.Get(ctx, checkpointKey(q.chain, q.network)).Result()
	if errors.Is(err, redis.Nil) {
		return checkpointStart, nil
	}
	if err != nil {
		return "", fmt.Errorf("read submission checkpoint: %w", err)
	}
	return id, nil
}

// Read blocks up to wait for entries after lastID. An empty result means
// the wait elapsed with nothing new.
func (q *SubmissionQueue) Read(ctx context.Context, lastID string, count int64, wait time.Duration) ([]Entry, error) {
	streams, err := q.client.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{submissionStream(q.chain, q.network), lastID},
		Count:   count,
		Block:   wait,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read submissions: %w", err)
	}

	var entries []Entry
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			entry, err := decodeEntry(msg)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Commit durably records id as fully processed.
func (q *SubmissionQueue) Commit(ctx context.Context, id string) error {
	if err := q.client.rdb.Set(ctx, checkpointKey(q.chain, q.network), id, 0).Err(); err != nil {
		return fmt.Errorf("commit submission checkpoint: %w", err)
	}
	return nil
}
