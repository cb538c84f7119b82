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

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/corehttp/txcore/internal/ipallow"
)

// Flags is the set of command-line flags txcore accepts.
type Flags struct {
	ConfigPath   string
	customPath   bool
	PrintVersion bool
	LogLevel     string
	ListenPort   int
}

// ParsedFlags holds the result of the most recent Load's flag parse.
var ParsedFlags = Flags{}

// LoaderWarnings holds warnings generated during config load (before the
// logger is initialized), so they can be logged once logging is up.
var LoaderWarnings []string

// Load returns the Application Configuration, starting with a default
// config, then overriding with any provided config file, then env vars,
// and finally flags.
func Load(applicationName, applicationVersion string, arguments []string) (*RecordsConfig, error) {
	LoaderWarnings = make([]string, 0)
	ParsedFlags = Flags{}

	c := NewConfig()

	if err := parseFlags(applicationName, applicationVersion, arguments); err != nil {
		return nil, err
	}
	if ParsedFlags.PrintVersion {
		return c, nil
	}

	if err := c.loadFile(); err != nil && ParsedFlags.customPath {
		// a user-provided path couldn't be loaded; surface it, don't
		// silently fall back to defaults.
		return nil, err
	}

	c.loadEnvVars()
	c.applyFlags()

	Config = c
	return c, nil
}

func parseFlags(applicationName, applicationVersion string, arguments []string) error {
	fs := flag.NewFlagSet(applicationName, flag.ContinueOnError)
	fs.StringVar(&ParsedFlags.ConfigPath, "config", "", "path to the TOML configuration file")
	fs.BoolVar(&ParsedFlags.PrintVersion, "version", false, "print the version and exit")
	fs.StringVar(&ParsedFlags.LogLevel, "log-level", "", "override the configured log level")
	fs.IntVar(&ParsedFlags.ListenPort, "listen-port", 0, "override the configured frontend listen port")
	if err := fs.Parse(arguments); err != nil {
		return err
	}
	ParsedFlags.customPath = ParsedFlags.ConfigPath != ""
	if ParsedFlags.PrintVersion {
		fmt.Fprintf(os.Stdout, "%s %s\n", applicationName, applicationVersion)
	}
	return nil
}

// loadFile overlays a TOML file onto c. Because c's nested sections are
// already non-nil (from NewConfig), toml.DecodeFile mutates the existing
// structs in place and only the keys actually present in the file
// override the defaults — absent keys keep whatever NewConfig set, which
// is the "explicit-zero vs unset" distinction needed
// without needing a metadata.IsDefined check per scalar field.
func (c *RecordsConfig) loadFile() error {
	if ParsedFlags.ConfigPath == "" {
		return nil
	}
	metadata, err := toml.DecodeFile(ParsedFlags.ConfigPath, c)
	if err != nil {
		return err
	}
	if !metadata.IsDefined("ip_allow", "file") && c.IPAllow.File == "" {
		LoaderWarnings = append(LoaderWarnings, "ip_allow.file not set: no IP allow/deny policy is loaded")
	}
	return nil
}

func (c *RecordsConfig) loadEnvVars() {
	if v := os.Getenv("TXCORE_LOG_LEVEL"); v != "" {
		c.Logging.LogLevel = v
	}
	if v := os.Getenv("TXCORE_LOG_FILE"); v != "" {
		c.Logging.LogFile = v
	}
	if v := os.Getenv("TXCORE_LISTEN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Frontend.ListenPort = p
		} else {
			LoaderWarnings = append(LoaderWarnings, "invalid TXCORE_LISTEN_PORT: "+v)
		}
	}
	if v := os.Getenv("TXCORE_IP_ALLOW_FILE"); v != "" {
		c.IPAllow.File = v
	}
}

// applyFlags overlays parsed flags, taking precedence over file and env.
func (c *RecordsConfig) applyFlags() {
	if ParsedFlags.LogLevel != "" {
		c.Logging.LogLevel = ParsedFlags.LogLevel
	}
	if ParsedFlags.ListenPort != 0 {
		c.Frontend.ListenPort = ParsedFlags.ListenPort
	}
}

// LoadIPAllow reads c.IPAllow.File and builds a live ipallow.IpAllow from
// it. A blank path returns a
// deny-all IpAllow, matching New()'s documented zero value.
func (c *RecordsConfig) LoadIPAllow() (*ipallow.IpAllow, error) {
	a := ipallow.New()
	if c.IPAllow.File == "" {
		return a, nil
	}
	data, err := os.ReadFile(c.IPAllow.File)
	if err != nil {
		return nil, err
	}
	if err := a.Reload(data); err != nil {
		return nil, err
	}
	return a, nil
}
