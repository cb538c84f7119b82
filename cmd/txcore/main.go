/**
* Copyright 2018 Comcast Cable Communications Management, LLC
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You may obtain a copy of the License at
* http://www.apache.org/licenses/LICENSE-2.0
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
 */

package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"

	cr "github.com/corehttp/txcore/internal/cache/registration"
	"github.com/corehttp/txcore/internal/config"
	"github.com/corehttp/txcore/internal/fetch"
	"github.com/corehttp/txcore/internal/ipallow"
	"github.com/corehttp/txcore/internal/log"
	"github.com/corehttp/txcore/internal/metrics"
	"github.com/corehttp/txcore/internal/planner"
	"github.com/corehttp/txcore/internal/prewarm"
	"github.com/corehttp/txcore/internal/proxy/engines"
	"github.com/corehttp/txcore/internal/routing"
	"github.com/corehttp/txcore/internal/routing/registration"
	"github.com/corehttp/txcore/internal/runtime"
	"github.com/corehttp/txcore/internal/tracing"
)

const (
	applicationName    = "txcore"
	applicationVersion = "0.1.0"
)

func main() {
	runtime.ApplicationName = applicationName
	runtime.ApplicationVersion = applicationVersion

	cfg, err := config.Load(applicationName, applicationVersion, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load configuration: %v\n", err)
		os.Exit(1)
	}
	if config.ParsedFlags.PrintVersion {
		fmt.Println(applicationVersion)
		os.Exit(0)
	}

	logger := log.New(cfg.Logging.LogLevel, cfg.Logging.LogFile)
	log.SetDefault(logger)
	defer logger.Close()
	for _, w := range config.LoaderWarnings {
		log.Warn(w, log.Pairs{})
	}

	flush, err := tracing.SetTracer(
		tracing.TracerImplementations[cfg.Tracing.Implementation],
		cfg.Tracing.CollectorEndpoint,
		cfg.Tracing.SampleRate,
	)
	if err != nil {
		log.Error("tracer setup failed", log.Pairs{"implementation": cfg.Tracing.Implementation, "detail": err.Error()})
	}
	if flush != nil {
		defer flush()
	}

	store, err := cr.NewCache(cfg.CacheConfiguration())
	if err != nil {
		log.Fatal(err)
	}
	if err := store.Connect(); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	var allow *ipallow.IpAllow
	if cfg.IPAllow.File != "" {
		allow, err = cfg.LoadIPAllow()
		if err != nil {
			log.Fatal(err)
		}
	}

	pool := prewarm.New()

	engine := &engines.ObjectProxy{
		Conf:      cfg,
		Cache:     store,
		Fetcher:   fetch.New(time.Duration(cfg.HTTP.DownServerTimeoutSecs) * time.Second),
		IPAllow:   allow,
		Parents:   planner.NewParentTable(nil),
		PreWarm:   pool,
		Stats:     metrics.Snapshot,
		ProxyUUID: newInstanceUUID(),
		ProxyPort: uint16(cfg.Frontend.ListenPort),
	}

	if err := registration.RegisterProxyRoutes(cfg, engine); err != nil {
		log.Fatal(err)
	}

	if _, err := metrics.TextSnapshot(); err != nil {
		log.Fatal(err)
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Metrics.ListenAddress, cfg.Metrics.ListenPort)
		log.Info("metrics http endpoint starting", log.Pairs{"address": addr})
		if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
			log.Error("metrics listener exited", log.Pairs{"detail": err.Error()})
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Frontend.ListenAddress, cfg.Frontend.ListenPort)
	log.Info("proxy http endpoint starting", log.Pairs{"address": addr, "version": applicationVersion})
	err = http.ListenAndServe(addr, handlers.CompressHandler(routing.Router))
	log.Fatal(err)
}

// newInstanceUUID derives the Via loop-detection token for this process.
// It only has to be stable for the process lifetime and unique enough
// that two proxies in one request chain never collide.
func newInstanceUUID() string {
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	ifs, _ := net.Interfaces()
	for _, i := range ifs {
		if len(i.HardwareAddr) > 0 {
			return fmt.Sprintf("%s-%x-%d", host, i.HardwareAddr, os.Getpid())
		}
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}
