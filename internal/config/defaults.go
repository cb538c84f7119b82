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

package config

const (
	defaultLogFile  = ""
	defaultLogLevel = "INFO"
	defaultHostname = "localhost.unknown"

	defaultProxyListenPort    = 9090
	defaultProxyListenAddress = ""

	defaultMetricsListenPort    = 8082
	defaultMetricsListenAddress = ""

	defaultTracerImplementation = "stdout"

	defaultConnectAttemptsMaxRetries = 3
	defaultSimpleRetryMax            = 1
	defaultRoundRobinRetries         = 0
	defaultDownServerTimeoutSecs     = 30

	defaultNegativeCachingEnabled = true
	defaultNegativeCacheTTLSecs   = 30

	defaultCacheHeuristicMaxAge = 86400

	defaultMaxPostSizeBytes      = 32 << 20
	defaultAllowExpect100       = true
	defaultWebsocketMaxSessions = 0 // 0 = unlimited

	defaultIPAllowFile = ""

	defaultPreWarmPoolSize = 0 // 0 = disabled

	defaultConfigHandlerPath = "/txcore/config"
	defaultPingHandlerPath   = "/txcore/ping"

	defaultCacheType       = "memory"
	defaultCacheCompression = true
	defaultRedisEndpoint    = "localhost:6379"
	defaultBBoltFilename    = "txcore.db"
	defaultBBoltBucket      = "txcore"
	defaultBadgerDirectory  = "/tmp/txcore-badger"
)
