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

import "github.com/ganglink/ganglink-core/pkg/api/models"

// Publisher forwards notifications read from a channel to an external
// system until stopped.
type Publisher interface {
	Start(notifications <-chan models.Notification) error
	Stop()
}

var (
	_ Publisher = (*MQTTPublisher)(nil)
	_ Publisher = (*RedisPublisher)(nil)
)
