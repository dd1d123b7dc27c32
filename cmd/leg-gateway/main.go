// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/seatrace-io/leg/api/admin"
	healthAPI "github.com/seatrace-io/leg/api/admin/health"
	"github.com/seatrace-io/leg/api/gateway"
	"github.com/seatrace-io/leg/internal/admission"
	"github.com/seatrace-io/leg/internal/classifier"
	"github.com/seatrace-io/leg/internal/correlation"
	"github.com/seatrace-io/leg/internal/keys"
	"github.com/seatrace-io/leg/internal/pipeline"
	"github.com/seatrace-io/leg/internal/policy"
	"github.com/seatrace-io/leg/internal/ratelimit"
	"github.com/seatrace-io/leg/internal/revocation"
	"github.com/seatrace-io/leg/internal/stores"
	"github.com/seatrace-io/leg/pkg/config"
)

var logger = log.WithContext("pkg", "main")

func main() {
	app := cli.App{
		Name:   "leg-gateway",
		Usage:  "License Enforcement Gateway",
		Flags:  []cli.Flag{listenAddrFlag, adminAddrFlag, upstreamFlag, corsFlag, keysFileFlag, redisAddrFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	logLevelVar := new(slog.LevelVar)
	logLevelVar.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, logLevelVar, true)))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v := ctx.String(listenAddrFlag.Name); v != "" {
		cfg.ListenAddr = v
	}
	if v := ctx.String(adminAddrFlag.Name); v != "" {
		cfg.AdminAddr = v
	}

	upstreamURL, err := url.Parse(ctx.String(upstreamFlag.Name))
	if err != nil {
		return fmt.Errorf("parse upstream url: %w", err)
	}

	var (
		counterStore    stores.CounterStore
		idemSet         stores.IdempotencySet
		revocationStore revocation.Store
	)
	if addr := ctx.String(redisAddrFlag.Name); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		counterStore = &stores.RedisCounterStore{Client: client}
		idemSet = &stores.RedisIdempotencySet{Client: client}
		revocationStore = &revocation.RedisStore{Client: client}
	} else {
		logger.Warn("no redis address configured, running with in-memory stores (single instance only)")
		counterStore = stores.NewMemoryCounterStore()
		idemSet = stores.NewMemoryIdempotencySet()
		revocationStore = revocation.NewMemoryStore()
	}

	keysFile := ctx.String(keysFileFlag.Name)
	var keySource keys.Source
	if keysFile != "" {
		keySource = &keys.FileSource{Path: keysFile}
	} else {
		keySource = emptyKeySource{}
	}

	background := context.Background()

	keyDir, err := keys.New(background, keySource)
	if err != nil {
		return fmt.Errorf("load key directory: %w", err)
	}
	keyDir.Start(cfg.KeyRefreshInterval)
	defer keyDir.Stop()

	verifier := keys.NewVerifier(keyDir, cfg.DefaultKid, cfg.VerifyMinLatency, cfg.ClockSkewLeeway)

	crl, err := revocation.New(background, revocationStore, cfg.BloomCapacity, cfg.BloomFPR)
	if err != nil {
		return fmt.Errorf("build revocation filter: %w", err)
	}
	crl.Start(cfg.BloomRefresh)
	defer crl.Stop()

	limiter := ratelimit.New(counterStore, cfg.RateLimits)

	cls := classifier.New(nil) // route tags are supplied by the fronted service's OpenAPI doc at deploy time

	gate := policy.New(cls, cfg.GracePeriod, counterStore, idemSet, cfg.OverageRates, cfg.IdempotencyExpiry, correlation.LogSink{})

	perPillarDefault := admission.Config{SponsorPermits: cfg.SponsorPermitsPerPillar, FreePermits: cfg.FreePermitsPerPillar}
	adm := admission.New(cfg.AdmissionPermits, nil, perPillarDefault)

	p := &pipeline.Pipeline{
		Verifier: verifier, CRL: crl, Limiter: limiter, Gate: gate,
		Admission: adm, Classifier: cls, Sink: correlation.LogSink{}, Tiers: cfg.RateLimits,
	}

	gatewayHandler := gateway.New(p, gateway.Config{Upstream: upstreamURL, AllowedOrigins: ctx.String(corsFlag.Name)})

	health := healthAPI.New(keyDir, crl, cfg.BloomRefresh*2)
	apiLogsToggle := &atomic.Bool{}
	adminHandler := admin.New(logLevelVar, health, apiLogsToggle, crl, correlation.LogSink{})

	gatewaySrv := startServer(cfg.ListenAddr, gatewayHandler)
	defer gatewaySrv()
	adminSrv := startServer(cfg.AdminAddr, adminHandler)
	defer adminSrv()

	logger.Info("leg-gateway started", "listen", cfg.ListenAddr, "admin", cfg.AdminAddr, "upstream", upstreamURL.String())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	return nil
}

// emptyKeySource backs a gateway started with no keys file; every
// token is then rejected on an unknown kid rather than the process
// refusing to start.
type emptyKeySource struct{}

func (emptyKeySource) Load(_ context.Context) ([]keys.Entry, error) { return nil, nil }
