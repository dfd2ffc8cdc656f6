package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gateway-dashboard/src/helpers"
	"gateway-dashboard/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// Override adjusts the decoded config before defaults and validation run.
type Override func(*models.MConfig)

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string, overrides ...Override) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data, overrides...)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from raw YAML, applying overrides and defaults before validation
func Parse(data []byte, overrides ...Override) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	for _, apply := range overrides {
		apply(&modelConfig)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every zero value that has a sensible default
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "gateway-dashboard"
	}
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8787
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}

	g := &c.Gateway
	setInt(&g.TimeoutMs, 10000)
	setInt(&g.AgentTimeoutMs, 60000)
	setInt(&g.MinProtocol, 3)
	setInt(&g.MaxProtocol, 3)
	setString(&g.ClientID, "gateway-dashboard")
	setString(&g.ClientVersion, "1.0.0")
	setString(&g.Platform, "linux")
	setString(&g.Mode, "backend")
	setString(&g.Role, "operator")
	if len(g.Scopes) == 0 {
		g.Scopes = []string{"operator.read", "operator.write"}
	}

	p := &c.Poller
	setInt(&p.IntervalSeconds, 15)
	setInt(&p.SessionLookbackMinutes, 24*60)
	setInt(&p.RecencyWindowSeconds, 120)
	setInt(&p.NoiseThresholdSeconds, 10)
	setInt(&p.MaxEntries, 500)
	setInt(&p.ExcerptLength, 80)

	t := &c.Treasury
	setString(&t.PriceAssetID, "ethereum")
	setString(&t.FiatCurrency, "usd")
	setString(&t.NativeSymbol, "ETH")
	setInt(&t.NativeDecimals, 18)
	setInt(&t.Token.Decimals, 18)
	setInt(&t.AggregateTTLSeconds, 60)
	setInt(&t.PriceTTLSeconds, 120)
	setInt(&t.TransactionTTLSeconds, 300)
	setInt(&t.TransactionLimit, 30)

	if c.Docker.Socket == "" && c.Docker.Host == "" {
		c.Docker.Socket = "/var/run/docker.sock"
	}
	setInt(&c.Docker.DefaultTail, 200)

	setInt(&c.Network.RequestTimeout, 15)
	setInt(&c.Network.ConcurrentRequests, 8)
	setString(&c.Network.UserAgent, "gateway-dashboard/1.0")
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Validate Gateway configuration
	if c.Gateway.URL == "" {
		return fmt.Errorf("gateway url cannot be empty")
	}
	u, err := url.Parse(c.Gateway.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("gateway url must be a ws:// or wss:// url, got '%s'", c.Gateway.URL)
	}
	if c.Gateway.MinProtocol > c.Gateway.MaxProtocol {
		return fmt.Errorf("gateway min_protocol %d exceeds max_protocol %d", c.Gateway.MinProtocol, c.Gateway.MaxProtocol)
	}
	if c.Gateway.TimeoutMs <= 0 || c.Gateway.AgentTimeoutMs <= 0 {
		return fmt.Errorf("gateway timeouts must be greater than 0")
	}

	// Validate Poller configuration
	if c.Poller.IntervalSeconds <= 0 {
		return fmt.Errorf("poller interval must be greater than 0")
	}
	if c.Poller.MaxEntries <= 0 {
		return fmt.Errorf("poller max_entries must be greater than 0")
	}
	if c.Poller.MaxTrackedSessions < 0 || c.Poller.MaxTrackedJobs < 0 {
		return fmt.Errorf("poller snapshot bounds cannot be negative")
	}

	// Validate Treasury configuration
	for i, w := range c.Treasury.Wallets {
		if !IsHexAddress(w.Address) {
			return fmt.Errorf("wallet %d has an invalid address '%s'", i, w.Address)
		}
	}
	if len(c.Treasury.Wallets) > 0 && c.Treasury.ChainRPCURL == "" {
		return fmt.Errorf("treasury chain_rpc_url is required when wallets are configured")
	}
	if c.Treasury.Token.Contract != "" && !IsHexAddress(c.Treasury.Token.Contract) {
		return fmt.Errorf("token contract '%s' is not a valid address", c.Treasury.Token.Contract)
	}
	if c.Treasury.AggregateTTLSeconds <= 0 || c.Treasury.PriceTTLSeconds <= 0 || c.Treasury.TransactionTTLSeconds <= 0 {
		return fmt.Errorf("treasury ttl values must be greater than 0")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0600: the gateway token lives here)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// IsHexAddress checks for a 0x-prefixed 20-byte hex address
func IsHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(strings.ToLower(s), "0x") {
		return false
	}
	for _, r := range s[2:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}
