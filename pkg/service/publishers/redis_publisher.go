// Ganglink Core
// Copyright (c) 2026 The Ganglink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Ganglink Core.
//
// Ganglink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Ganglink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Ganglink Core.  If not, see <http://www.gnu.org/licenses/>.

package publishers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const (
	redisPingTimeout = 5 * time.Second
	// DefaultRedisPrefix is used when no key prefix is configured.
	DefaultRedisPrefix = "ganglink"
)

var ErrRedisPublisherStarted = errors.New("redis publisher already started")

type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisPublisher publishes link notifications on Redis pub/sub channels
// named <prefix>:<method>. The latest link state is also kept in the
// <prefix>:link.state key for clients that poll.
type RedisPublisher struct {
	client    redisClient
	newClient func(*redis.Options) redisClient
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	opts      redis.Options
	prefix    string
	filter    []string
	stopOnce  sync.Once
}

func NewRedisPublisher(opts redis.Options, prefix string, filter []string) *RedisPublisher {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisPublisher{
		opts:   opts,
		prefix: prefix,
		filter: filter,
		newClient: func(o *redis.Options) redisClient {
			return redis.NewClient(o)
		},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start checks the server is reachable and publishes everything read from
// notifications until Stop is called or the channel closes.
func (p *RedisPublisher) Start(notifications <-chan models.Notification) error {
	if p.client != nil {
		return ErrRedisPublisherStarted
	}

	p.client = p.newClient(&p.opts)

	ctx, cancel := context.WithTimeout(p.ctx, redisPingTimeout)
	defer cancel()
	if err := p.client.Ping(ctx).Err(); err != nil {
		close(p.done)
		return fmt.Errorf("failed to connect to redis at %s: %w", p.opts.Addr, err)
	}

	log.Info().Str("addr", p.opts.Addr).Str("prefix", p.prefix).Msg("redis publisher started")

	go p.publishNotifications(notifications)
	return nil
}

// Stop ends publishing and closes the client. It is safe to call more than
// once.
func (p *RedisPublisher) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		if p.client == nil {
			return
		}
		select {
		case <-p.done:
		case <-time.After(publishTimeout):
			log.Warn().Msg("redis publisher: timed out waiting for publish loop")
		}
		if err := p.client.Close(); err != nil {
			log.Debug().Err(err).Msg("redis publisher: closing client")
		}
	})
}

func (p *RedisPublisher) publishNotifications(notifications <-chan models.Notification) {
	defer close(p.done)

	for {
		select {
		case <-p.ctx.Done():
			log.Debug().Msg("redis publisher: stopping")
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("redis publisher: notification channel closed")
				return
			}
			if len(p.filter) > 0 && !slices.Contains(p.filter, notif.Method) {
				continue
			}
			p.publish(notif)
		}
	}
}

func (p *RedisPublisher) publish(notif models.Notification) {
	payload := string(notif.Params)
	if payload == "" {
		payload = "{}"
	}
	key := p.prefix + ":" + notif.Method

	ctx, cancel := context.WithTimeout(p.ctx, publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, key, payload).Err(); err != nil {
		log.Error().Err(err).Str("method", notif.Method).Msg("redis publisher: failed to publish message")
		return
	}
	if notif.Method == models.NotificationLinkState {
		if err := p.client.Set(ctx, key, payload, 0).Err(); err != nil {
			log.Error().Err(err).Msg("redis publisher: failed to store link state")
		}
	}
}
