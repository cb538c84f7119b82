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

// Package config is the Running Configuration for txcore: a TOML-loaded
// RecordsConfig, layered defaults -> file -> env vars -> flags, the way
// a layered runtime configuration is assembled.
package config

import (
	"time"

	"github.com/corehttp/txcore/internal/cache"
	"github.com/corehttp/txcore/internal/freshness"
	"github.com/corehttp/txcore/internal/planner"
	"github.com/corehttp/txcore/internal/transact"
)

// Config is the Running Configuration for txcore.
var Config *RecordsConfig

// RecordsConfig is the root of the loaded configuration: numeric/boolean
// settings read by name at startup, hot-reloadable by atomic swap.
type RecordsConfig struct {
	Main     *MainConfig     `toml:"main"`
	Frontend *FrontendConfig `toml:"frontend"`
	Logging  *LoggingConfig  `toml:"logging"`
	Metrics  *MetricsConfig  `toml:"metrics"`
	Tracing  *TracingConfig  `toml:"tracing"`
	HTTP     *HTTPConfig     `toml:"http"`
	IPAllow  *IPAllowConfig  `toml:"ip_allow"`
	PreWarm  *PreWarmConfig  `toml:"prewarm"`
	Cache    *CacheConfig    `toml:"cache"`
}

// MainConfig is the Main subsection of the Running Configuration.
type MainConfig struct {
	InstanceID        string `toml:"instance_id"`
	ConfigHandlerPath string `toml:"config_handler_path"`
	PingHandlerPath   string `toml:"ping_handler_path"`
}

// FrontendConfig is the listener subsection of the Running Configuration.
type FrontendConfig struct {
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
}

// LoggingConfig is the Logging subsection of the Running Configuration.
type LoggingConfig struct {
	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`
}

// MetricsConfig is the Metrics subsection of the Running Configuration.
type MetricsConfig struct {
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
}

// TracingConfig defines distributed trace options for the Running
// Configuration.
type TracingConfig struct {
	Implementation    string  `toml:"implementation"`
	CollectorEndpoint string  `toml:"collector_endpoint"`
	ServiceName       string  `toml:"service_name"`
	SampleRate        float64 `toml:"sample_rate"`
}

// HTTPConfig carries the proxying knobs internal/transact and
// internal/planner actually consult.
type HTTPConfig struct {
	CacheHeuristicMaxAgeSecs  int    `toml:"cache_heuristic_max_age_secs"`
	NegativeCachingEnabled    bool   `toml:"negative_caching_enabled"`
	NegativeCacheTTLSecs      int    `toml:"negative_cache_ttl_secs"`
	ConnectAttemptsMaxRetries uint32 `toml:"connect_attempts_max_retries"`
	SimpleRetryMax            uint32 `toml:"simple_retry_attempts_max"`
	RoundRobinRetries         uint32 `toml:"parent_retry_round_robin"`
	DownServerTimeoutSecs     int    `toml:"down_server_timeout_secs"`
	GoDirectIfParentDead      bool   `toml:"go_direct_if_parent_dead"`
	UncacheableBypassesParent bool   `toml:"uncacheable_requests_bypass_parent"`
	SSLParentingEnabled       bool   `toml:"ssl_parenting_enabled"`
	DNSForwardToParentEnabled bool   `toml:"forward_connect_method"`
	MaxPostSizeBytes          int64  `toml:"max_post_size_bytes"`
	AllowExpect100            bool   `toml:"allow_expect_100_continue"`
	WebsocketMaxSessions      int    `toml:"websocket_max_sessions"`
	CacheHTTPEnabled          bool   `toml:"cache_http"`
	RangeLookupPermitted      bool   `toml:"cache_range_lookup"`
	AllowedConnectPorts       []int  `toml:"connect_ports"`
}

// IPAllowConfig names the ip_allow.yaml/ip_allow.config file.
type IPAllowConfig struct {
	File string `toml:"file"`
}

// PreWarmConfig sizes the idle-connection pool internal/prewarm manages.
type PreWarmConfig struct {
	PoolSize int `toml:"pool_size"`
}

// CacheConfig selects and configures the internal/cache backend.
type CacheConfig struct {
	CacheType   string `toml:"cache_type"`
	Compression bool   `toml:"compression"`

	RedisEndpoint string `toml:"redis_endpoint"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	BBoltFilename string `toml:"bbolt_filename"`
	BBoltBucket   string `toml:"bbolt_bucket"`

	BadgerDirectory string `toml:"badger_directory"`
}

// NewConfig returns a RecordsConfig populated with the package defaults,
// before the file/env/flag overlays are applied.
func NewConfig() *RecordsConfig {
	return &RecordsConfig{
		Main: &MainConfig{
			ConfigHandlerPath: defaultConfigHandlerPath,
			PingHandlerPath:   defaultPingHandlerPath,
		},
		Frontend: &FrontendConfig{
			ListenAddress: defaultProxyListenAddress,
			ListenPort:    defaultProxyListenPort,
		},
		Logging: &LoggingConfig{
			LogFile:  defaultLogFile,
			LogLevel: defaultLogLevel,
		},
		Metrics: &MetricsConfig{
			ListenAddress: defaultMetricsListenAddress,
			ListenPort:    defaultMetricsListenPort,
		},
		Tracing: &TracingConfig{
			Implementation: defaultTracerImplementation,
		},
		HTTP: &HTTPConfig{
			CacheHeuristicMaxAgeSecs:  defaultCacheHeuristicMaxAge,
			NegativeCachingEnabled:    defaultNegativeCachingEnabled,
			NegativeCacheTTLSecs:      defaultNegativeCacheTTLSecs,
			ConnectAttemptsMaxRetries: defaultConnectAttemptsMaxRetries,
			SimpleRetryMax:            defaultSimpleRetryMax,
			RoundRobinRetries:         defaultRoundRobinRetries,
			DownServerTimeoutSecs:     defaultDownServerTimeoutSecs,
			MaxPostSizeBytes:          defaultMaxPostSizeBytes,
			AllowExpect100:            defaultAllowExpect100,
			WebsocketMaxSessions:      defaultWebsocketMaxSessions,
			CacheHTTPEnabled:          true,
			RangeLookupPermitted:      true,
			AllowedConnectPorts:       []int{443},
		},
		IPAllow: &IPAllowConfig{
			File: defaultIPAllowFile,
		},
		PreWarm: &PreWarmConfig{
			PoolSize: defaultPreWarmPoolSize,
		},
		Cache: &CacheConfig{
			CacheType:     defaultCacheType,
			Compression:   defaultCacheCompression,
			RedisEndpoint: defaultRedisEndpoint,
			BBoltFilename: defaultBBoltFilename,
			BBoltBucket:   defaultBBoltBucket,
			BadgerDirectory: defaultBadgerDirectory,
		},
	}
}

// CacheConfiguration projects the CacheConfig section onto
// cache.Configuration, the shape internal/cache/registration.NewCache
// consumes.
func (c *RecordsConfig) CacheConfiguration() cache.Configuration {
	cc := c.Cache
	return cache.Configuration{
		CacheType:   cache.Type(cc.CacheType),
		Compression: cc.Compression,
		Redis: cache.RedisConfig{
			Endpoint: cc.RedisEndpoint,
			Password: cc.RedisPassword,
			DB:       cc.RedisDB,
		},
		BBolt: cache.BBoltConfig{
			Filename: cc.BBoltFilename,
			Bucket:   cc.BBoltBucket,
		},
		Badger: cache.BadgerConfig{
			Directory: cc.BadgerDirectory,
		},
	}
}

// PlannerConfig projects the HTTPConfig knobs onto planner.Config, the
// atomic-pointer-swapped snapshot a transaction takes at entry.
func (c *RecordsConfig) PlannerConfig() planner.Config {
	h := c.HTTP
	return planner.Config{
		MaxRetriesOverall:        h.ConnectAttemptsMaxRetries,
		GoDirectIfParentDead:     h.GoDirectIfParentDead,
		UncacheableBypassesParent: h.UncacheableBypassesParent,
		SSLParentingEnabled:       h.SSLParentingEnabled,
		DNSForwardToParentEnabled: h.DNSForwardToParentEnabled,
		SimpleRetryMax:            h.SimpleRetryMax,
	}
}

// ValidationConfig projects the HTTPConfig knobs onto
// transact.ValidationConfig.
func (c *RecordsConfig) ValidationConfig() transact.ValidationConfig {
	ports := make(map[uint16]bool, len(c.HTTP.AllowedConnectPorts))
	for _, p := range c.HTTP.AllowedConnectPorts {
		ports[uint16(p)] = true
	}
	return transact.ValidationConfig{AllowedConnectPorts: ports}
}

// CacheLookupConfig projects the HTTPConfig knobs onto
// transact.CacheLookupConfig.
func (c *RecordsConfig) CacheLookupConfig() transact.CacheLookupConfig {
	return transact.CacheLookupConfig{
		CacheHTTPEnabled:     c.HTTP.CacheHTTPEnabled,
		RangeLookupPermitted: c.HTTP.RangeLookupPermitted,
	}
}

// NegativeRevalidationConfig projects the HTTPConfig knobs onto
// transact.NegativeRevalidationConfig.
func (c *RecordsConfig) NegativeRevalidationConfig() transact.NegativeRevalidationConfig {
	return transact.NegativeRevalidationConfig{
		Enabled: c.HTTP.NegativeCachingEnabled,
		TTL:     c.HTTP.NegativeCacheTTLSecs,
	}
}

// ResponseFromServerConfig projects the HTTPConfig knobs onto
// transact.ResponseFromServerConfig.
func (c *RecordsConfig) ResponseFromServerConfig() transact.ResponseFromServerConfig {
	return transact.ResponseFromServerConfig{
		MaxRetries:        c.HTTP.ConnectAttemptsMaxRetries,
		RoundRobinRetries: c.HTTP.RoundRobinRetries,
	}
}

// FreshnessLimits projects the HTTPConfig knobs onto freshness.Limits.
func (c *RecordsConfig) FreshnessLimits() freshness.Limits {
	lim := freshness.DefaultLimits()
	if c.HTTP.CacheHeuristicMaxAgeSecs > 0 {
		lim.HeuristicMaxLifetime = time.Duration(c.HTTP.CacheHeuristicMaxAgeSecs) * time.Second
	}
	return lim
}

// HandleRequestConfig projects the HTTPConfig knobs onto
// transact.HandleRequestConfig, minus the runtime-wired fields
// (Stats, WebsocketLimit) the caller supplies separately.
func (c *RecordsConfig) HandleRequestConfig() transact.HandleRequestConfig {
	return transact.HandleRequestConfig{
		Validation:     c.ValidationConfig(),
		CacheLookup:    c.CacheLookupConfig(),
		MaxPostSize:    c.HTTP.MaxPostSizeBytes,
		AllowExpect100: c.HTTP.AllowExpect100,
	}
}

// String keeps secrets and noise out of debug dumps.
func (c *RecordsConfig) String() string {
	return "config.RecordsConfig{...}"
}
