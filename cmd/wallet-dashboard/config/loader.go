package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/quantumauth-io/wallet-dashboard/internal/chains"
	"github.com/quantumauth-io/wallet-dashboard/internal/constants"
	"github.com/quantumauth-io/wallet-dashboard/internal/dashboard"
	"github.com/quantumauth-io/wallet-dashboard/internal/rates"
	"github.com/quantumauth-io/wallet-dashboard/internal/scheduler"
)

//go:embed config.yaml
var EmbeddedConfigYAML []byte

// EnvPrefix prefixes every environment override, e.g.
// WALLET_DASHBOARD_SERVER_PORT.
const EnvPrefix = "WALLET_DASHBOARD"

type ServerSettings struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type WalletSettings struct {
	NativeCurrency     string        `mapstructure:"nativeCurrency"`
	DefaultNetwork     string        `mapstructure:"defaultNetwork"`
	FiatCurrency       string        `mapstructure:"fiatCurrency"`
	TokenPolicy        string        `mapstructure:"tokenPolicy"`
	HistorySettleDelay time.Duration `mapstructure:"historySettleDelay"`
	PreferredRPC       string        `mapstructure:"preferredRPC"`
	AssetsPath         string        `mapstructure:"assetsPath"`
}

type Account struct {
	Address  string `mapstructure:"address"`
	Name     string `mapstructure:"name"`
	Imported bool   `mapstructure:"imported"`
}

type Config struct {
	Server        ServerSettings         `mapstructure:"server"`
	Wallet        WalletSettings         `mapstructure:"wallet"`
	Chains        chains.AllChainsConfig `mapstructure:"chains"`
	Accounts      []Account              `mapstructure:"accounts"`
	DefaultAssets map[string][]string    `mapstructure:"defaultAssets"`
	Detection     map[string][]string    `mapstructure:"detection"`
	Collectibles  map[string][]string    `mapstructure:"collectibles"`
	Images        map[string]string      `mapstructure:"images"`
	Rates         rates.Config           `mapstructure:"rates"`
	Scheduler     scheduler.Config       `mapstructure:"scheduler"`
}

// SearchPaths are the directories looked at for a config.yaml overriding
// the embedded defaults.
func SearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".config", constants.AppName),
		filepath.Join(home, "config"),
		".",
	}
}

// Load reads the embedded defaults, merges the first config.yaml found in
// SearchPaths (or file, when set) and applies environment overrides.
func Load(file string) (*Config, error) {
	return load(file, SearchPaths())
}

func load(file string, paths []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(EmbeddedConfigYAML)); err != nil {
		return nil, errors.Wrap(err, "read embedded config")
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "merge config file")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	cfg.Chains.Normalize()

	if err := cfg.NormalizeAddressLists(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the dashboard cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server.port is empty")
	}
	if len(c.Chains.Networks) == 0 {
		return errors.New("chains.networks is empty")
	}
	network := strings.ToLower(strings.TrimSpace(c.Wallet.DefaultNetwork))
	if network == "" {
		network = constants.DefaultNetwork
	}
	if _, ok := c.Chains.Networks[network]; !ok {
		return errors.Newf("wallet.defaultNetwork %q is not configured", network)
	}
	c.Wallet.DefaultNetwork = network
	if _, err := dashboard.ParseTokenListPolicy(c.Wallet.TokenPolicy); err != nil {
		return errors.Wrap(err, "wallet.tokenPolicy")
	}
	for i, a := range c.Accounts {
		if !common.IsHexAddress(strings.TrimSpace(a.Address)) {
			return errors.Newf("accounts[%d]: invalid address %q", i, a.Address)
		}
	}
	return nil
}

// NormalizeAddressLists lowercases network keys, checksums every address
// and drops duplicates in the per-network address lists.
func (c *Config) NormalizeAddressLists() error {
	var err error
	if c.DefaultAssets, err = normalizeAddressMap("defaultAssets", c.DefaultAssets); err != nil {
		return err
	}
	if c.Detection, err = normalizeAddressMap("detection", c.Detection); err != nil {
		return err
	}
	if c.Collectibles, err = normalizeAddressMap("collectibles", c.Collectibles); err != nil {
		return err
	}
	return nil
}

func normalizeAddressMap(section string, in map[string][]string) (map[string][]string, error) {
	out := make(map[string][]string, len(in))

	for netKey, addrs := range in {
		nk := strings.ToLower(strings.TrimSpace(netKey))
		if nk == "" {
			return nil, fmt.Errorf("%s has empty network key", section)
		}

		seen := map[string]struct{}{}
		list := make([]string, 0, len(addrs))

		for _, raw := range addrs {
			a := strings.TrimSpace(raw)
			if a == "" {
				return nil, fmt.Errorf("%s[%q] contains empty address", section, netKey)
			}
			if !strings.HasPrefix(a, "0x") && !strings.HasPrefix(a, "0X") {
				a = "0x" + a
			}
			if !common.IsHexAddress(a) {
				return nil, fmt.Errorf("%s[%q] invalid address: %q", section, netKey, raw)
			}

			canon := common.HexToAddress(a).Hex()
			if _, ok := seen[canon]; ok {
				continue
			}
			seen[canon] = struct{}{}
			list = append(list, canon)
		}

		out[nk] = list
	}
	return out, nil
}

// ListenAddr is host:port of the local HTTP server.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}
