// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from yaml strings like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Bus       BusConfig       `yaml:"bus"`
	RPC       RPCConfig       `yaml:"rpc"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Retention RetentionConfig `yaml:"retention"`
	Breaker   BreakerConfig   `yaml:"breaker"`
}

type BusConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

type RPCConfig struct {
	Port int `yaml:"port"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ArchiveConfig struct {
	Root string `yaml:"root"`
}

// RetentionConfig carries per-class retention windows in days. The gateway
// accepts them as configuration only; enforcement lives outside this core.
type RetentionConfig struct {
	RawDays     int `yaml:"raw_days"`
	DerivedDays int `yaml:"derived_days"`
	AuditDays   int `yaml:"audit_days"`
}

type BreakerConfig struct {
	Timeout       Duration `yaml:"timeout"`
	ProbeInterval Duration `yaml:"probe_interval"`
}

// Default returns the configuration used when neither file nor environment
// overrides a key.
func Default() *Config {
	return &Config{
		Bus:       BusConfig{Driver: "nats", URL: "nats://localhost:4222"},
		RPC:       RPCConfig{Port: 50051},
		HTTP:      HTTPConfig{Port: 8080},
		Log:       LogConfig{Level: "info"},
		Archive:   ArchiveConfig{Root: "./data/archive"},
		Retention: RetentionConfig{RawDays: 30, DerivedDays: 90, AuditDays: 365},
		Breaker: BreakerConfig{
			Timeout:       Duration(10 * time.Second),
			ProbeInterval: Duration(5 * time.Second),
		},
	}
}

// Load builds the configuration in three layers: defaults, then the yaml
// file at path (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Bus.Driver, "BUS_DRIVER")
	setString(&c.Bus.URL, "BUS_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Archive.Root, "ARCHIVE_ROOT")

	for _, v := range []struct {
		dst *int
		key string
	}{
		{&c.RPC.Port, "RPC_PORT"},
		{&c.HTTP.Port, "HTTP_PORT"},
		{&c.Retention.RawDays, "RETENTION_RAW_DAYS"},
		{&c.Retention.DerivedDays, "RETENTION_DERIVED_DAYS"},
		{&c.Retention.AuditDays, "RETENTION_AUDIT_DAYS"},
	} {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}

	for _, v := range []struct {
		dst *Duration
		key string
	}{
		{&c.Breaker.Timeout, "BREAKER_TIMEOUT"},
		{&c.Breaker.ProbeInterval, "BREAKER_PROBE_INTERVAL"},
	} {
		if err := setDuration(v.dst, v.key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, val, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *Duration, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, val, err)
	}
	*dst = Duration(d)
	return nil
}
