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
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(filter []string) (*MQTTPublisher, *mockMQTTClient) {
	client := newMockMQTTClient()
	p := NewMQTTPublisher("localhost:1883", "ganglink/events/", filter)
	p.newClient = func(*mqtt.ClientOptions) mqtt.Client { return client }
	return p, client
}

func TestNewMQTTPublisher(t *testing.T) {
	t.Parallel()

	publisher := NewMQTTPublisher("localhost:1883", "ganglink/events/", []string{"link.state"})

	assert.Equal(t, "localhost:1883", publisher.broker)
	assert.Equal(t, "ganglink/events", publisher.topic)
	assert.Equal(t, []string{"link.state"}, publisher.filter)
	assert.NotNil(t, publisher.stopCh)
}

func TestBrokerURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tcp://localhost:1883", brokerURL("localhost:1883"))
	assert.Equal(t, "ssl://broker.example.com:8883", brokerURL("ssl://broker.example.com:8883"))
}

func TestMatchesFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		filter []string
		want   bool
	}{
		{name: "nil filter matches all", method: models.NotificationSamples, want: true},
		{name: "empty filter matches all", filter: []string{}, method: models.NotificationImpedance, want: true},
		{
			name:   "method in filter",
			filter: []string{models.NotificationLinkState, models.NotificationLinkLost},
			method: models.NotificationLinkLost,
			want:   true,
		},
		{
			name:   "method not in filter",
			filter: []string{models.NotificationLinkState},
			method: models.NotificationSamples,
		},
		{
			name:   "case sensitive",
			filter: []string{models.NotificationLinkState},
			method: "Link.State",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			publisher := &MQTTPublisher{filter: tt.filter}
			assert.Equal(t, tt.want, publisher.matchesFilter(tt.method))
		})
	}
}

func TestQosFor(t *testing.T) {
	t.Parallel()

	qos, retained := qosFor(models.NotificationSamples)
	assert.Equal(t, byte(0), qos)
	assert.False(t, retained)

	qos, retained = qosFor(models.NotificationLinkState)
	assert.Equal(t, byte(1), qos)
	assert.True(t, retained)

	qos, retained = qosFor(models.NotificationImpedance)
	assert.Equal(t, byte(1), qos)
	assert.False(t, retained)
}

func TestPublisherPublishesFilteredNotifications(t *testing.T) {
	t.Parallel()

	p, client := newTestPublisher([]string{models.NotificationLinkState, models.NotificationArchiveEnded})
	notifs := make(chan models.Notification, 10)
	require.NoError(t, p.Start(notifs))

	notifs <- models.Notification{Method: models.NotificationSamples, Params: []byte(`{"frames":[]}`)}
	notifs <- models.Notification{Method: models.NotificationLinkState, Params: []byte(`{"state":"connected"}`)}
	notifs <- models.Notification{Method: models.NotificationArchiveEnded}
	close(notifs)

	select {
	case <-p.done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}

	msgs := client.published()
	require.Len(t, msgs, 2)
	assert.Equal(t, "ganglink/events/link.state", msgs[0].topic)
	assert.True(t, msgs[0].retained)
	assert.Equal(t, []byte(`{"state":"connected"}`), msgs[0].payload)
	assert.Equal(t, "ganglink/events/archive.ended", msgs[1].topic)
	assert.Equal(t, []byte("{}"), msgs[1].payload)

	p.Stop()
	p.Stop()
	assert.Equal(t, 1, client.disconnectCall)
}

func TestPublisherConnectError(t *testing.T) {
	t.Parallel()

	p, client := newTestPublisher(nil)
	client.connectError = errors.New("connection refused")

	err := p.Start(make(chan models.Notification))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to MQTT broker")
}

func TestPublisherSurvivesPublishError(t *testing.T) {
	t.Parallel()

	p, client := newTestPublisher(nil)
	client.publishError = errors.New("not authorised")
	notifs := make(chan models.Notification, 2)
	require.NoError(t, p.Start(notifs))

	notifs <- models.Notification{Method: models.NotificationLinkLost}
	notifs <- models.Notification{Method: models.NotificationLinkLost}
	close(notifs)

	select {
	case <-p.done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
	assert.Empty(t, client.published())
	p.Stop()
}

func TestPublisherStartTwice(t *testing.T) {
	t.Parallel()

	p, _ := newTestPublisher(nil)
	require.NoError(t, p.Start(make(chan models.Notification)))
	defer p.Stop()

	require.ErrorIs(t, p.Start(make(chan models.Notification)), ErrPublisherStarted)
}
