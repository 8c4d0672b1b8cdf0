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

// Package publishers forwards link notifications to external systems.
package publishers

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250
)

var ErrPublisherStarted = errors.New("mqtt publisher already started")

// MQTTPublisher publishes link notifications to an MQTT broker. Each
// notification goes to <topic>/<method> with the params as payload.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
	stopCh    chan struct{}
	done      chan struct{}
	broker    string
	topic     string
	filter    []string
	stopOnce  sync.Once
}

// NewMQTTPublisher returns a publisher for broker and topic. An empty
// filter publishes every notification.
func NewMQTTPublisher(broker, topic string, filter []string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    broker,
		topic:     strings.TrimSuffix(topic, "/"),
		filter:    filter,
		newClient: mqtt.NewClient,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Start connects to the broker and publishes everything read from
// notifications until Stop is called or the channel closes.
func (p *MQTTPublisher) Start(notifications <-chan models.Notification) error {
	if p.client != nil {
		return ErrPublisherStarted
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.broker))
	opts.SetClientID("ganglink-publisher-" + uuid.New().String()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetWill(p.topic+"/"+models.NotificationLinkState, `{"state":"offline"}`, 1, true)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Str("broker", p.broker).Msg("mqtt publisher: connected")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", p.broker).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().Str("broker", p.broker).Str("topic", p.topic).Msg("mqtt publisher started")

	go p.publishNotifications(notifications)
	return nil
}

// Stop ends publishing and disconnects. It is safe to call more than once.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)

		if p.client != nil && p.client.IsConnected() {
			log.Debug().Msg("mqtt publisher: disconnecting")
			p.client.Disconnect(disconnectQuiesce)
		}
	})
}

func (p *MQTTPublisher) publishNotifications(notifications <-chan models.Notification) {
	defer close(p.done)

	for {
		select {
		case <-p.stopCh:
			log.Debug().Msg("mqtt publisher: stopping")
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("mqtt publisher: notification channel closed")
				return
			}
			if !p.matchesFilter(notif.Method) {
				continue
			}
			p.publish(notif)
		}
	}
}

func (p *MQTTPublisher) publish(notif models.Notification) {
	qos, retained := qosFor(notif.Method)
	payload := []byte(notif.Params)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	token := p.client.Publish(p.topic+"/"+notif.Method, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Warn().Str("method", notif.Method).Msg("mqtt publisher: publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Str("method", notif.Method).Msg("mqtt publisher: failed to publish message")
		return
	}

	if notif.Method != models.NotificationSamples {
		log.Debug().Str("method", notif.Method).Msg("mqtt publisher: published notification")
	}
}

// qosFor picks delivery settings: samples are best effort, the link state is
// retained so new subscribers see the current state.
func qosFor(method string) (qos byte, retained bool) {
	switch method {
	case models.NotificationSamples:
		return 0, false
	case models.NotificationLinkState:
		return 1, true
	default:
		return 1, false
	}
}

func (p *MQTTPublisher) matchesFilter(method string) bool {
	return len(p.filter) == 0 || slices.Contains(p.filter, method)
}
