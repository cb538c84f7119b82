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

package registration

import (
	"fmt"
	"net/http"

	"github.com/corehttp/txcore/internal/config"
	"github.com/corehttp/txcore/internal/log"
	"github.com/corehttp/txcore/internal/middleware"
	"github.com/corehttp/txcore/internal/routing"
	"github.com/corehttp/txcore/internal/runtime"
)

// RegisterProxyRoutes installs the admin endpoints and the catch-all
// proxy handler on the shared router.
func RegisterProxyRoutes(cfg *config.RecordsConfig, engine http.Handler) error {
	if engine == nil {
		return fmt.Errorf("registration: nil proxy engine")
	}

	routing.Router.Use(middleware.Trace(), middleware.Recover())

	accessLog, err := middleware.AccessLog("")
	if err != nil {
		return err
	}
	routing.Router.Use(accessLog)

	pingPath := cfg.Main.PingHandlerPath
	if pingPath != "" {
		log.Debug("registering ping handler path", log.Pairs{"path": pingPath})
		routing.Router.HandleFunc(pingPath, pingHandler).Methods("GET")
	}

	configPath := cfg.Main.ConfigHandlerPath
	if configPath != "" {
		log.Debug("registering config handler path", log.Pairs{"path": configPath})
		routing.Router.HandleFunc(configPath, configHandler(cfg)).Methods("GET")
	}

	log.Info("registering proxy handler", log.Pairs{
		"listenAddress": cfg.Frontend.ListenAddress,
		"listenPort":    cfg.Frontend.ListenPort,
	})
	routing.Router.PathPrefix("/").Handler(middleware.Decorate(engine))
	return nil
}

func pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s %s pong\n", runtime.ApplicationName, runtime.ApplicationVersion)
}

func configHandler(cfg *config.RecordsConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, cfg.String())
	}
}
