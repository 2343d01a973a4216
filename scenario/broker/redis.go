// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package broker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLister abstracts the minimal surface RedisBroker needs from a Redis
// client: RPUSH to append, LRANGE to read a window, LLEN to learn the
// current length. Implementations may wrap *redis.Client or *redis.
// ClusterClient directly, since both satisfy this subset of Cmdable.
type RedisLister interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// RedisBroker is a durable Broker backed by a single Redis list. The list
// IS the log: RPUSH assigns the next offset implicitly (its new length - 1),
// LRANGE serves Poll. There is no trimming, so Base is always 0; a
// production deployment would pair this with LTRIM and a separately
// tracked base, the way the teacher's RedisPersister pairs SETNX markers
// with a TTL for leak protection.
type RedisBroker struct {
	client RedisLister
	key    string
	ctx    context.Context
}

// NewRedisBroker returns a RedisBroker storing its log under key.
func NewRedisBroker(ctx context.Context, client RedisLister, key string) *RedisBroker {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RedisBroker{client: client, key: key, ctx: ctx}
}

// Publish RPUSHes payload and returns its offset (the list's new length - 1).
func (b *RedisBroker) Publish(payload []byte) (int64, error) {
	n, err := b.client.RPush(b.ctx, b.key, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("broker: redis rpush key=%s: %w", b.key, err)
	}
	return n - 1, nil
}

// Poll returns up to max messages starting at cursor.
func (b *RedisBroker) Poll(reader string, cursor int64, max int) ([]Message, error) {
	stop := cursor + int64(max) - 1
	if max <= 0 {
		stop = -1
	}
	raw, err := b.client.LRange(b.ctx, b.key, cursor, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("broker: redis lrange key=%s reader=%s: %w", b.key, reader, err)
	}
	out := make([]Message, len(raw))
	for i, v := range raw {
		out[i] = Message{Offset: cursor + int64(i), Payload: []byte(v)}
	}
	return out, nil
}

// Base always reports 0: this implementation never trims its backing list.
func (b *RedisBroker) Base() int64 { return 0 }

// Close is a no-op; the caller owns the RedisLister's lifecycle.
func (b *RedisBroker) Close() error { return nil }
