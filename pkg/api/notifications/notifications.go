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

// Package notifications builds link notifications and queues them without
// blocking the sender.
package notifications

import (
	"encoding/json"

	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/rs/zerolog/log"
)

func sendNotification(ns chan<- models.Notification, method string, payload any) {
	var params json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("failed to marshal notification")
			return
		}
		params = data
	}

	select {
	case ns <- models.Notification{Method: method, Params: params}:
	default:
		log.Warn().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func LinkState(ns chan<- models.Notification, payload models.LinkStateParams) {
	sendNotification(ns, models.NotificationLinkState, payload)
}

func DeviceFound(ns chan<- models.Notification, name string) {
	sendNotification(ns, models.NotificationDeviceFound, models.DeviceFoundParams{Name: name})
}

func Impedance(ns chan<- models.Notification, payload models.ImpedanceParams) {
	sendNotification(ns, models.NotificationImpedance, payload)
}

func Samples(ns chan<- models.Notification, payload models.SamplesParams) {
	sendNotification(ns, models.NotificationSamples, payload)
}

func LinkLost(ns chan<- models.Notification, err error) {
	payload := models.LinkLostParams{}
	if err != nil {
		payload.Error = err.Error()
	}
	sendNotification(ns, models.NotificationLinkLost, payload)
}

func Warning(ns chan<- models.Notification, kind, message string) {
	sendNotification(ns, models.NotificationWarning, models.WarningParams{Kind: kind, Message: message})
}

func ArchiveEnded(ns chan<- models.Notification, payload models.ArchiveEndedParams) {
	sendNotification(ns, models.NotificationArchiveEnded, payload)
}
