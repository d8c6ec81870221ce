package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Round  RoundConfig  `mapstructure:"round"`
	RPC    RPCConfig    `mapstructure:"rpc"`
	Gas    GasConfig    `mapstructure:"gas"`
	Router RouterConfig `mapstructure:"router"`
	Wallet WalletConfig `mapstructure:"wallet"`

	// Contracts maps a trade type name to its destination arb contract and
	// interpreter dispair. A missing entry disables that trade type for
	// every order (UndefinedTradeDestinationAddress).
	Contracts map[string]TradeContracts `mapstructure:"contracts"`

	// AllowLists maps a strategy name to the orderbook addresses it may
	// solve for. An orderbook that appears in none of the lists is
	// unrestricted: every strategy runs for it.
	AllowLists map[string][]string `mapstructure:"allow_lists"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type RoundConfig struct {
	Schedule      string        `mapstructure:"schedule"`
	Timeout       time.Duration `mapstructure:"timeout"`
	TopCandidates int           `mapstructure:"top_candidates"`
	ReportHistory int           `mapstructure:"report_history"`
	NativeWrapped string        `mapstructure:"native_wrapped"`
}

type RPCConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GasConfig struct {
	// CoveragePercentage is kept as a string on purpose: "0" disables the
	// bounty guard entirely, which is a distinct mode rather than just a
	// zero floor.
	CoveragePercentage string `mapstructure:"coverage_percentage"`
	LimitMultiplier    uint64 `mapstructure:"limit_multiplier"`
}

// Coverage parses the configured coverage percentage into an exact integer.
func (g GasConfig) Coverage() (*big.Int, error) {
	s := strings.TrimSpace(g.CoveragePercentage)
	if s == "" {
		return nil, fmt.Errorf("gas.coverage_percentage is empty")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("gas.coverage_percentage %q is not a non-negative integer", s)
	}
	return v, nil
}

type RouterConfig struct {
	Timeout  time.Duration   `mapstructure:"timeout"`
	Backends []RouterBackend `mapstructure:"backends"`
}

type RouterBackend struct {
	Kind     string `mapstructure:"kind"`
	Endpoint string `mapstructure:"endpoint"`
	Enabled  bool   `mapstructure:"enabled"`
}

type WalletConfig struct {
	// Address is the solver signer. Dry runs simulate from it and the
	// bounty guard checks its balances; the key itself never enters this
	// process.
	Address string `mapstructure:"address"`
}

type TradeContracts struct {
	Destination string        `mapstructure:"destination"`
	Dispair     DispairConfig `mapstructure:"dispair"`
}

type DispairConfig struct {
	Deployer    string `mapstructure:"deployer"`
	Interpreter string `mapstructure:"interpreter"`
	Store       string `mapstructure:"store"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("round.schedule", "@every 5s")
	v.SetDefault("round.timeout", "30s")
	v.SetDefault("round.top_candidates", 3)
	v.SetDefault("round.report_history", 64)
	v.SetDefault("rpc.timeout", "15s")
	v.SetDefault("gas.coverage_percentage", "100")
	v.SetDefault("gas.limit_multiplier", 100)
	v.SetDefault("router.timeout", "10s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Gas.Coverage(); err != nil {
		return Config{}, err
	}
	if cfg.Round.TopCandidates <= 0 {
		cfg.Round.TopCandidates = 3
	}
	return cfg, nil
}
