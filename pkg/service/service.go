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

// Package service runs the driver: it owns the device link and connects it
// to the API, the MQTT and Redis publishers and mDNS discovery.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/ganglink/ganglink-core/pkg/api"
	"github.com/ganglink/ganglink-core/pkg/api/models"
	"github.com/ganglink/ganglink-core/pkg/archive"
	"github.com/ganglink/ganglink-core/pkg/config"
	"github.com/ganglink/ganglink-core/pkg/ganglion/link"
	"github.com/ganglink/ganglink-core/pkg/ganglion/samples"
	"github.com/ganglink/ganglink-core/pkg/ganglion/transport"
	"github.com/ganglink/ganglink-core/pkg/helpers"
	"github.com/ganglink/ganglink-core/pkg/helpers/syncutil"
	"github.com/ganglink/ganglink-core/pkg/service/broker"
	"github.com/ganglink/ganglink-core/pkg/service/discovery"
	"github.com/ganglink/ganglink-core/pkg/service/publishers"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	notificationQueueSize = 1024
	eventQueueSize        = 256
	sampleQueueSize       = 4096
	publisherBufferSize   = 256
)

// Options overrides the service's collaborators. The zero value uses the
// real hub, clock and filesystem.
type Options struct {
	Transport transport.Transport
	Clock     clockwork.Clock
	Fs        afero.Fs
	Launcher  link.HubLauncher
	// Listener replaces listening on the configured API address.
	Listener net.Listener
	DataDir  string
	Timing   link.Timing
	// Offline skips opening the hub, for replaying archives without a
	// headset.
	Offline bool
}

// Service is a running driver. It implements api.Controller.
type Service struct {
	*link.Link

	cfg        *config.Instance
	clock      clockwork.Clock
	fs         afero.Fs
	ctx        context.Context
	cancel     context.CancelFunc
	group      *errgroup.Group
	ns         chan models.Notification
	events     chan link.Event
	samplesOut *samples.ChannelOutput
	broker     *broker.Broker
	discovery  *discovery.Service
	publishers []publishers.Publisher
	archiveDir string
	listener   net.Listener
	offline    bool
	replay     replayRun
	// autoRecord is the path of a recording started on connect.
	autoRecord string
	stopped    bool
	mu         syncutil.Mutex
}

// Start runs the driver with the platform directories in dirs.
func Start(cfg *config.Instance, dirs helpers.Dirs) (stop func() error, err error) {
	svc, err := New(cfg, Options{DataDir: dirs.DataDir})
	if err != nil {
		return nil, err
	}
	if err := svc.Start(); err != nil {
		return nil, err
	}
	return svc.Stop, nil
}

// New builds a service without starting anything.
func New(cfg *config.Instance, opts Options) (*Service, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Transport == nil {
		opts.Transport = transport.NewTCP(cfg.HubHost(), cfg.HubPort())
	}
	if opts.Launcher == nil && cfg.HubExePath() != "" {
		opts.Launcher = link.NewCommandLauncher(cfg.HubExePath(), cfg.HubExeArgs()...)
	}
	if opts.Timing == (link.Timing{}) {
		opts.Timing = link.DefaultTiming()
		opts.Timing.ConnectTimeout = cfg.ConnectTimeout()
		opts.Timing.PollTimeout = cfg.PollTimeout()
	}

	archiveDir := cfg.ArchiveDir(opts.DataDir)
	if err := opts.Fs.MkdirAll(archiveDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:        cfg,
		clock:      opts.Clock,
		fs:         opts.Fs,
		ctx:        ctx,
		cancel:     cancel,
		ns:         make(chan models.Notification, notificationQueueSize),
		events:     make(chan link.Event, eventQueueSize),
		samplesOut: samples.NewChannelOutput(sampleQueueSize),
		discovery:  discovery.New(cfg),
		archiveDir: archiveDir,
	}
	s.broker = broker.NewBroker(ctx, s.ns)
	s.Link = link.New(link.Options{
		Transport: opts.Transport,
		Clock:     opts.Clock,
		Archive:   archive.New(opts.Fs),
		Launcher:  opts.Launcher,
		Events:    s.events,
		Outputs:   []samples.Output{s.samplesOut},
		Timing:    opts.Timing,
	})
	s.listener = opts.Listener
	s.offline = opts.Offline
	return s, nil
}

// Start opens the hub link and starts every background component. On error
// everything already started is stopped again.
func (s *Service) Start() error {
	log.Info().Msgf("version: %s", config.AppVersion)

	s.broker.Start()

	ln := s.listener
	if ln == nil {
		var lc net.ListenConfig
		var err error
		ln, err = lc.Listen(s.ctx, "tcp", s.cfg.APIListen())
		if err != nil {
			s.cancel()
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.APIListen(), err)
		}
	}

	g, gctx := errgroup.WithContext(s.ctx)
	s.group = g

	log.Info().Msg("starting API service")
	server := api.New(s.cfg, s, s.broker)
	g.Go(func() error {
		return server.Serve(gctx, ln)
	})
	g.Go(func() error {
		s.forwardEvents(gctx)
		return nil
	})
	g.Go(func() error {
		s.forwardSamples(gctx)
		return nil
	})
	g.Go(func() error {
		if err := s.cfg.Watch(gctx, nil); err != nil {
			log.Warn().Err(err).Msg("config changes will need a restart")
		}
		return nil
	})

	log.Info().Msg("starting publishers")
	s.startPublishers()

	log.Info().Msg("starting mDNS discovery service")
	if err := s.discovery.Start(); err != nil {
		log.Error().Err(err).Msg("mDNS discovery failed to start (continuing without discovery)")
	}

	if s.offline {
		log.Info().Msg("offline mode, not opening hub link")
		return nil
	}

	log.Info().Str("hub", s.cfg.HubHost()).Int("port", s.cfg.HubPort()).Msg("opening hub link")
	if err := s.Open(s.ctx); err != nil {
		return errors.Join(err, s.Stop())
	}

	if device := s.cfg.HubDevice(); device != "" {
		g.Go(func() error {
			log.Info().Str("device", device).Msg("connecting to configured device")
			err := s.Connect(gctx, device)
			switch {
			case err == nil:
			case errors.Is(err, link.ErrLinkClosed), errors.Is(err, context.Canceled):
				log.Debug().Str("device", device).Msg("auto-connect abandoned on shutdown")
			default:
				log.Error().Err(err).Str("device", device).Msg("auto-connect failed")
			}
			return nil
		})
	}

	log.Info().Msg("service fully initialized")
	return nil
}

func (s *Service) startPublishers() {
	for _, mqttCfg := range s.cfg.GetMQTTPublishers() {
		// nil means enabled
		if mqttCfg.Enabled != nil && !*mqttCfg.Enabled {
			continue
		}
		log.Info().Msgf("starting MQTT publisher: %s (topic: %s)", mqttCfg.Broker, mqttCfg.Topic)
		s.startPublisher(
			publishers.NewMQTTPublisher(mqttCfg.Broker, mqttCfg.Topic, mqttCfg.Filter),
			mqttCfg.Broker,
			mqttCfg.Filter,
		)
	}

	for _, redisCfg := range s.cfg.GetRedisPublishers() {
		if redisCfg.Enabled != nil && !*redisCfg.Enabled {
			continue
		}
		log.Info().Msgf("starting Redis publisher: %s (prefix: %s)", redisCfg.Addr, redisCfg.Prefix)
		opts := redis.Options{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		}
		s.startPublisher(
			publishers.NewRedisPublisher(opts, redisCfg.Prefix, redisCfg.Filter),
			redisCfg.Addr,
			redisCfg.Filter,
		)
	}

	if len(s.publishers) > 0 {
		log.Info().Msgf("started %d publisher(s)", len(s.publishers))
	}
}

func (s *Service) startPublisher(p publishers.Publisher, target string, filter []string) {
	notifs, id := s.broker.Subscribe(publisherBufferSize, filter...)
	if err := p.Start(notifs); err != nil {
		log.Error().Err(err).Msgf("failed to start publisher for %s", target)
		s.broker.Unsubscribe(id)
		p.Stop()
		return
	}
	s.publishers = append(s.publishers, p)
}

// Stop closes the link and shuts every component down. Repeated calls are
// no-ops.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	log.Info().Msg("stopping service")

	s.stopReplay()
	var errs []error
	if err := s.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close link: %w", err))
	}

	s.cancel()
	if s.group != nil {
		if err := s.group.Wait(); err != nil {
			errs = append(errs, err)
		}
	}

	s.discovery.Stop()
	for _, publisher := range s.publishers {
		publisher.Stop()
	}
	s.broker.Stop()

	log.Info().Msg("service cleanup completed")
	return errors.Join(errs...)
}

// archivePath resolves a requested archive path inside the archive
// directory. An empty path gets a timestamped name.
func (s *Service) archivePath(path string) (string, error) {
	resolved, err := archive.ResolvePath(s.archiveDir, path, s.clock.Now())
	if err != nil {
		return "", fmt.Errorf("resolve archive path: %w", err)
	}
	return resolved, nil
}
