package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Wallet    Wallet    `mapstructure:"wallet"`
	Oracles   Oracles   `mapstructure:"oracles"`
	Solana    Solana    `mapstructure:"solana"`
	Jupiter   Jupiter   `mapstructure:"jupiter"`
	Trading   Trading   `mapstructure:"trading"`
	Policy    Policy    `mapstructure:"policy"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
	Logger    Logger    `mapstructure:"logger"`
	Database  Database  `mapstructure:"database"`
}

// Wallet holds the trading wallet credentials. The private key is expected
// to come from the environment (WALLET_PRIVATE_KEY), not the config file.
type Wallet struct {
	PrivateKey string `mapstructure:"private_key"`
	Address    string `mapstructure:"address"`
}

// Oracles holds base URLs for the external data services.
type Oracles struct {
	DexScreenerURL string `mapstructure:"dexscreener_url"`
	SentimentURL   string `mapstructure:"sentiment_url"`
	CoinGeckoURL   string `mapstructure:"coingecko_url"`
}

// Solana holds the configuration for the Solana RPC endpoint.
type Solana struct {
	RPCURL string `mapstructure:"rpc_url"`
}

// Jupiter holds the configuration for the swap aggregator.
type Jupiter struct {
	APIURL string `mapstructure:"api_url"`
}

// Trading holds the configuration for the trading logic.
type Trading struct {
	Assets              []string `mapstructure:"assets"`
	AccountValueUSD     float64  `mapstructure:"account_value_usd"`
	RiskFraction        float64  `mapstructure:"risk_fraction"`
	StopLossFraction    float64  `mapstructure:"stop_loss_fraction"`
	SlippageTolerance   float64  `mapstructure:"slippage_tolerance"`
	PartialSellFraction float64  `mapstructure:"partial_sell_fraction"`
	SurgeSentiment      float64  `mapstructure:"surge_sentiment"`
	SurgeVolumeUSD      float64  `mapstructure:"surge_volume_usd"`
	TickInterval        int      `mapstructure:"tick_interval"`
	ErrorBackoff        int      `mapstructure:"error_backoff"`
	MaxConcurrentAssets int      `mapstructure:"max_concurrent_assets"`
}

// Policy holds the Q-learning parameters. The reward divisors are scaling
// tunables, not correctness knobs.
type Policy struct {
	LearningRate     float64 `mapstructure:"learning_rate"`
	DiscountFactor   float64 `mapstructure:"discount_factor"`
	EpsilonDecay     float64 `mapstructure:"epsilon_decay"`
	EpsilonFloor     float64 `mapstructure:"epsilon_floor"`
	TableCap         int     `mapstructure:"table_cap"`
	TrainEpisodes    int     `mapstructure:"train_episodes"`
	TrainTickSeconds int     `mapstructure:"train_tick_seconds"`
	BuyDivisor       float64 `mapstructure:"buy_divisor"`
	SellDivisor      float64 `mapstructure:"sell_divisor"`
	HoldDivisor      float64 `mapstructure:"hold_divisor"`
}

// RateLimit holds the per-channel request spacing, cache TTL and the shared
// retry budget. Price, social and RPC calls are throttled independently.
type RateLimit struct {
	PriceRPS     float64 `mapstructure:"price_rps"`
	SocialRPS    float64 `mapstructure:"social_rps"`
	RPCRPS       float64 `mapstructure:"rpc_rps"`
	CacheTTL     int     `mapstructure:"cache_ttl"`
	MaxAttempts  int     `mapstructure:"max_attempts"`
	BaseDelayMS  int     `mapstructure:"base_delay_ms"`
	ConfirmTries int     `mapstructure:"confirm_tries"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("oracles.dexscreener_url", "https://api.dexscreener.com/latest/dex")
	viper.SetDefault("oracles.coingecko_url", "https://api.coingecko.com/api/v3")
	viper.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	viper.SetDefault("jupiter.api_url", "https://quote-api.jup.ag/v6")

	viper.SetDefault("trading.account_value_usd", 100)
	viper.SetDefault("trading.risk_fraction", 0.02)
	viper.SetDefault("trading.stop_loss_fraction", 0.10)
	viper.SetDefault("trading.slippage_tolerance", 0.005)
	viper.SetDefault("trading.partial_sell_fraction", 0.25)
	viper.SetDefault("trading.surge_sentiment", 0.7)
	viper.SetDefault("trading.surge_volume_usd", 50000)
	viper.SetDefault("trading.tick_interval", 10) // seconds
	viper.SetDefault("trading.error_backoff", 60) // seconds, after a whole-tick failure
	viper.SetDefault("trading.max_concurrent_assets", 4)

	viper.SetDefault("policy.learning_rate", 0.1)
	viper.SetDefault("policy.discount_factor", 0.9)
	viper.SetDefault("policy.epsilon_decay", 0.01)
	viper.SetDefault("policy.epsilon_floor", 0.01)
	viper.SetDefault("policy.table_cap", 10000)
	viper.SetDefault("policy.train_episodes", 20)
	viper.SetDefault("policy.train_tick_seconds", 5)
	viper.SetDefault("policy.buy_divisor", 10)
	viper.SetDefault("policy.sell_divisor", 10)
	viper.SetDefault("policy.hold_divisor", 20)

	viper.SetDefault("rate_limit.price_rps", 1) // requests per second
	viper.SetDefault("rate_limit.social_rps", 1)
	viper.SetDefault("rate_limit.rpc_rps", 1)
	viper.SetDefault("rate_limit.cache_ttl", 60) // seconds
	viper.SetDefault("rate_limit.max_attempts", 3)
	viper.SetDefault("rate_limit.base_delay_ms", 1000)
	viper.SetDefault("rate_limit.confirm_tries", 5)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("database.dsn", "bot.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
