package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	GrpcHost string          `yaml:"grpc_host"`
	GrpcPort int             `yaml:"grpc_port"`
	Gateway  MGatewayConfig  `yaml:"gateway"`
	Poller   MPollerConfig   `yaml:"poller"`
	Treasury MTreasuryConfig `yaml:"treasury"`
	Docker   MDockerConfig   `yaml:"docker"`
	Network  MNetworkConfig  `yaml:"network"`
}

type MGatewayConfig struct {
	URL            string   `yaml:"url"`
	Token          string   `yaml:"token"`
	TimeoutMs      int      `yaml:"timeout_ms"`
	AgentTimeoutMs int      `yaml:"agent_timeout_ms"`
	MinProtocol    int      `yaml:"min_protocol"`
	MaxProtocol    int      `yaml:"max_protocol"`
	ClientID       string   `yaml:"client_id"`
	ClientVersion  string   `yaml:"client_version"`
	Platform       string   `yaml:"platform"`
	Mode           string   `yaml:"mode"`
	Role           string   `yaml:"role"`
	Scopes         []string `yaml:"scopes"`
}

type MPollerConfig struct {
	IntervalSeconds        int `yaml:"interval_seconds"`
	SessionLookbackMinutes int `yaml:"session_lookback_minutes"`
	RecencyWindowSeconds   int `yaml:"recency_window_seconds"`
	NoiseThresholdSeconds  int `yaml:"noise_threshold_seconds"`
	MaxEntries             int `yaml:"max_entries"`
	ExcerptLength          int `yaml:"excerpt_length"`
	MaxTrackedSessions     int `yaml:"max_tracked_sessions"` // 0 = unbounded
	MaxTrackedJobs         int `yaml:"max_tracked_jobs"`     // 0 = unbounded
}

type MTreasuryConfig struct {
	ChainRPCURL           string          `yaml:"chain_rpc_url"`
	ExplorerURL           string          `yaml:"explorer_url"`
	PriceURL              string          `yaml:"price_url"`
	PriceAssetID          string          `yaml:"price_asset_id"`
	FiatCurrency          string          `yaml:"fiat_currency"`
	NativeSymbol          string          `yaml:"native_symbol"`
	NativeDecimals        int             `yaml:"native_decimals"`
	Token                 MTokenConfig    `yaml:"token"`
	Wallets               []MWalletConfig `yaml:"wallets"`
	AggregateTTLSeconds   int             `yaml:"aggregate_ttl_seconds"`
	PriceTTLSeconds       int             `yaml:"price_ttl_seconds"`
	TransactionTTLSeconds int             `yaml:"transaction_ttl_seconds"`
	TransactionLimit      int             `yaml:"transaction_limit"`
}

type MTokenConfig struct {
	Contract string  `yaml:"contract"`
	Symbol   string  `yaml:"symbol"`
	Decimals int     `yaml:"decimals"`
	FiatPeg  float64 `yaml:"fiat_peg"` // fixed fiat value per token unit, 0 = not counted
}

type MWalletConfig struct {
	Address string   `yaml:"address"`
	Name    string   `yaml:"name"`
	Symbols []string `yaml:"symbols,omitempty"`
}

type MDockerConfig struct {
	Socket      string `yaml:"socket"`
	Host        string `yaml:"host"` // tcp endpoint, used when socket is empty
	APIVersion  string `yaml:"api_version"`
	DefaultTail int    `yaml:"default_tail"`
}

type MNetworkConfig struct {
	Proxy              string `yaml:"proxy"`
	RequestTimeout     int    `yaml:"timeout"`
	ConcurrentRequests int    `yaml:"concurrent_requests"`
	UserAgent          string `yaml:"user_agent"`
}
