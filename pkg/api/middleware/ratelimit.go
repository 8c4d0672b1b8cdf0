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

package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/ganglink/ganglink-core/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestsPerSecond = 20
	DefaultBurstSize         = 40

	staleLimiterAge  = 10 * time.Minute
	cleanupInterval  = 5 * time.Minute
	rateLimitMessage = "rate limit exceeded"
)

// ParseRemoteIP extracts the IP from a RemoteAddr, with or without a port.
func ParseRemoteIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return net.ParseIP(host)
}

func remoteKey(remoteAddr string) string {
	if ip := ParseRemoteIP(remoteAddr); ip != nil {
		return ip.String()
	}
	return remoteAddr
}

// IPRateLimiter keeps one token bucket per client address, shared by HTTP
// and websocket traffic.
type IPRateLimiter struct {
	clock    clockwork.Clock
	limiters map[string]*rateLimiterEntry
	limit    rate.Limit
	burst    int
	mu       syncutil.Mutex
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows perSecond requests per client with the given
// burst. Non-positive values fall back to the defaults.
func NewIPRateLimiter(perSecond, burst int) *IPRateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = max(DefaultBurstSize, perSecond)
	}
	return &IPRateLimiter{
		clock:    clockwork.NewRealClock(),
		limiters: make(map[string]*rateLimiterEntry),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// GetLimiter returns the limiter for ip, creating it on first use.
func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (rl *IPRateLimiter) allow(ip string) bool {
	return rl.GetLimiter(ip).AllowN(rl.clock.Now(), 1)
}

// Cleanup forgets clients not seen for a while.
func (rl *IPRateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	for ip, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > staleLimiterAge {
			delete(rl.limiters, ip)
			log.Debug().Str("ip", ip).Msg("removed stale rate limiter")
		}
	}
}

// StartCleanup runs Cleanup periodically until ctx is cancelled.
func (rl *IPRateLimiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := rl.clock.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (rl *IPRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// HTTPRateLimitMiddleware rejects requests over the client's limit with 429.
func HTTPRateLimitMiddleware(limiter *IPRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := remoteKey(r.RemoteAddr)
			if !limiter.allow(host) {
				log.Warn().
					Str("ip", host).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("HTTP rate limit exceeded")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				err := json.NewEncoder(w).Encode(models.ErrorResponse{Error: rateLimitMessage})
				if err != nil {
					log.Debug().Err(err).Msg("failed to write rate limit response")
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WebSocketRateLimitHandler wraps a websocket message handler with the same
// per-client limit.
func WebSocketRateLimitHandler(
	limiter *IPRateLimiter,
	handler func(*melody.Session, []byte),
) func(*melody.Session, []byte) {
	return func(session *melody.Session, msg []byte) {
		host := remoteKey(session.Request.RemoteAddr)
		if !limiter.allow(host) {
			log.Warn().
				Str("ip", host).
				Int("msg_size", len(msg)).
				Msg("WebSocket rate limit exceeded")

			errorMsg, err := json.Marshal(models.ErrorResponse{Error: rateLimitMessage})
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal rate limit error")
				return
			}
			if err := session.Write(errorMsg); err != nil {
				log.Error().Err(err).Msg("failed to send rate limit error")
			}
			return
		}

		handler(session, msg)
	}
}
