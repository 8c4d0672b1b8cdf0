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

// Package broker fans link notifications out to API clients and publishers
// without letting a slow consumer stall the link.
package broker

import (
	"context"
	"slices"

	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/ganglink/ganglink-core/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ch      chan models.Notification
	methods []string
	dropped uint64
}

func (s *subscriber) wants(method string) bool {
	return len(s.methods) == 0 || slices.Contains(s.methods, method)
}

// Broker reads notifications from one source and copies each to every
// interested subscriber. Full subscriber channels drop the notification.
type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]*subscriber
	done        chan struct{}
	mu          syncutil.RWMutex
	nextID      int
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]*subscriber),
		done:        make(chan struct{}),
	}
}

// Start runs the broadcast loop until the source closes or the context is
// cancelled, then closes every subscriber channel.
func (b *Broker) Start() {
	go func() {
		defer close(b.done)
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source channel closed")
					b.closeAllSubscribers()
					return
				}
				b.broadcast(notif)
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled, shutting down")
				b.closeAllSubscribers()
				return
			}
		}
	}()
}

// Done is closed once the broadcast loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) broadcast(notif models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		if !sub.wants(notif.Method) {
			continue
		}
		select {
		case sub.ch <- notif:
		default:
			sub.dropped++
			// samples arrive at frame rate, so only log occasionally
			if notif.Method != models.NotificationSamples || sub.dropped%100 == 1 {
				log.Warn().
					Int("subscriber_id", id).
					Str("method", notif.Method).
					Uint64("dropped", sub.dropped).
					Msg("subscriber channel full, dropping notification")
			}
		}
	}
}

// Subscribe registers a subscriber for the given methods, or for every
// method when none are given.
func (b *Broker) Subscribe(bufferSize int, methods ...string) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	sub := &subscriber{
		ch:      make(chan models.Notification, bufferSize),
		methods: methods,
	}
	b.subscribers[id] = sub

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Strs("methods", methods).
		Msg("new subscriber registered")

	return sub.ch, id
}

// Dropped returns how many notifications were dropped for subscriber id.
func (b *Broker) Dropped(id int) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if sub, ok := b.subscribers[id]; ok {
		return sub.dropped
	}
	return 0
}

// Unsubscribe removes a subscription and closes its channel. Repeated calls
// are no-ops.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

func (b *Broker) Stop() {
	b.closeAllSubscribers()
}

func (b *Broker) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]*subscriber)
}
