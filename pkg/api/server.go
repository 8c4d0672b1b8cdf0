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

// Package api serves the HTTP control surface and the websocket event
// stream for the device link.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ganglink/ganglink-core/pkg/api/middleware"
	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/ganglion/link"
	"github.com/ganglink/ganglink-core/pkg/service/broker"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mackerelio/go-osstat/uptime"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const (
	eventBufferSize   = 256
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

var defaultAllowedOrigins = []string{"https://*", "http://*", "capacitor://*"}

// Controller is the set of link operations exposed over HTTP.
type Controller interface {
	Snapshot() link.Snapshot
	Scan() error
	Connect(ctx context.Context, name string) error
	Disconnect() error
	StartData() error
	StopData() error
	StartImpedance() error
	StopImpedance() error
	StartAccel() error
	StopAccel() error
	StartRecording(path string) (string, error)
	StopRecording() error
	StartReplay(path string) error
	StopReplay() error
	SeekReplay(pos int64) (int64, error)
}

// Server owns the router, the websocket hub and the rate limiter.
type Server struct {
	cfg     *config.Instance
	ctrl    Controller
	broker  *broker.Broker
	ws      *melody.Melody
	limiter *middleware.IPRateLimiter
	router  chi.Router
	started time.Time
	uptime  func() (time.Duration, error)
}

func New(cfg *config.Instance, ctrl Controller, b *broker.Broker) *Server {
	s := &Server{
		cfg:     cfg,
		ctrl:    ctrl,
		broker:  b,
		ws:      melody.New(),
		limiter: middleware.NewIPRateLimiter(cfg.RateLimit(), 0),
		started: time.Now(),
		uptime:  uptime.Get,
	}
	s.ws.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	s.ws.HandleConnect(s.handleWSConnect)
	s.ws.HandleMessage(middleware.WebSocketRateLimitHandler(s.limiter, handleWSMessage))
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	origins := s.cfg.AllowedOrigins()
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))

	r.Get("/api/events", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.APIRequestTimeout))

		r.Get("/api/health", s.handleHealth)
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/devices", s.handleDevices)
		r.Post("/api/scan", s.command(s.ctrl.Scan))
		r.Post("/api/connect/{name}", s.handleConnect)
		r.Post("/api/disconnect", s.command(s.ctrl.Disconnect))
		r.Post("/api/{stream}/{action}", s.handleStream)
		r.Post("/api/record", s.handleStartRecording)
		r.Delete("/api/record", s.command(s.ctrl.StopRecording))
		r.Post("/api/replay", s.handleStartReplay)
		r.Delete("/api/replay", s.command(s.ctrl.StopReplay))
		r.Post("/api/replay/seek", s.handleSeek)
	})

	return r
}

// Serve accepts connections on ln and broadcasts broker notifications to
// websocket clients until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	events, subID := s.broker.Subscribe(eventBufferSize)

	broadcastDone := make(chan struct{})
	go func() {
		defer close(broadcastDone)
		s.broadcast(ctx, events)
	}()

	s.limiter.StartCleanup(ctx)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
		errCh <- srv.Serve(ln)
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if closeErr := s.ws.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("closing websocket sessions")
		}
		err = srv.Shutdown(shutdownCtx)
		if serveErr := <-errCh; !errors.Is(serveErr, http.ErrServerClosed) {
			err = errors.Join(err, serveErr)
		}
	}
	s.broker.Unsubscribe(subID)
	<-broadcastDone

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.APIListen())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.APIListen(), err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) broadcast(ctx context.Context, events <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(models.NotificationObject{
				JSONRPC: "2.0",
				Method:  notif.Method,
				Params:  notif.Params,
			})
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}
			if err := s.ws.Broadcast(data); err != nil && !errors.Is(err, melody.ErrClosed) {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// handleWSConnect greets a new client with the current link state.
func (s *Server) handleWSConnect(session *melody.Session) {
	snap := s.ctrl.Snapshot()
	params, err := json.Marshal(models.LinkStateParams{
		State:  snap.State.String(),
		Device: snap.Target,
	})
	if err != nil {
		log.Error().Err(err).Msg("marshalling link state")
		return
	}
	data, err := json.Marshal(models.NotificationObject{
		JSONRPC: "2.0",
		Method:  models.NotificationLinkState,
		Params:  params,
	})
	if err != nil {
		log.Error().Err(err).Msg("marshalling link state notification")
		return
	}
	if err := session.Write(data); err != nil {
		log.Debug().Err(err).Msg("sending initial link state")
	}
}

func handleWSMessage(session *melody.Session, msg []byte) {
	// heartbeat
	if string(msg) == "ping" {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}
	log.Debug().Int("size", len(msg)).Msg("ignoring websocket message")
}
