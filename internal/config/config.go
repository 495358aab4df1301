// Package config loads the mint page configuration from a YAML file, a .env
// file and the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"drop-mint/internal/chain"
)

// ErrInvalidConfig is returned by Validate for unusable configuration.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultContractAddress is the drop served when none is configured.
const DefaultContractAddress = "0xBaF73629F6382C0E34Df305880c0531445df2450"

// Config holds all mint page configuration.
type Config struct {
	// Chain settings
	Network         string `yaml:"network"`
	ChainRPC        string `yaml:"chain_rpc"` // "chainID=url,..." overrides
	ContractAddress string `yaml:"contract_address"`
	WSEndpoint      string `yaml:"ws_endpoint"`
	IPFSGateway     string `yaml:"ipfs_gateway"`

	// Claim wallet. Only read from the environment.
	MinterPrivateKey string `yaml:"-"`

	// Server settings
	HTTPAddr        string `yaml:"http_addr"`
	RefreshInterval string `yaml:"refresh_interval"`
	ClaimTimeout    string `yaml:"claim_timeout"`
	LogLevel        string `yaml:"log_level"`

	Branding Branding `yaml:"branding"`
}

// Branding is the per-deployment page text.
type Branding struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Header      string `yaml:"header"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Network:         string(chain.Mumbai),
		ContractAddress: DefaultContractAddress,
		IPFSGateway:     "https://ipfs.io/ipfs/",
		HTTPAddr:        ":8080",
		RefreshInterval: "15s",
		ClaimTimeout:    "3m",
		LogLevel:        "info",
		Branding: Branding{
			Title:       "NFT Drop Minting",
			Description: "NFT Drop minting page",
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. A missing or empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadEnvFile sets variables from a KEY=VALUE file without overriding ones
// already present in the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read env file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(strings.TrimPrefix(parts[0], "export "))
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if _, ok := os.LookupEnv(key); !ok {
			os.Setenv(key, value)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env   string
		field *string
	}{
		{"NETWORK", &c.Network},
		{"CHAIN_RPC", &c.ChainRPC},
		{"CONTRACT_ADDRESS", &c.ContractAddress},
		{"WS_ENDPOINT", &c.WSEndpoint},
		{"IPFS_GATEWAY", &c.IPFSGateway},
		{"MINTER_PRIVATE_KEY", &c.MinterPrivateKey},
		{"HTTP_ADDR", &c.HTTPAddr},
		{"REFRESH_INTERVAL", &c.RefreshInterval},
		{"CLAIM_TIMEOUT", &c.ClaimTimeout},
		{"LOG_LEVEL", &c.LogLevel},
		{"PAGE_TITLE", &c.Branding.Title},
		{"PAGE_DESCRIPTION", &c.Branding.Description},
		{"PAGE_HEADER", &c.Branding.Header},
	}

	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.field = v
		}
	}
}

// Validate checks that the configuration can start a server.
func (c *Config) Validate() error {
	if _, err := c.Chain(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("%w: contract address %q is not a hex address", ErrInvalidConfig, c.ContractAddress)
	}
	if _, err := c.RPCOverrides(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.WSEndpoint != "" {
		u, err := url.Parse(c.WSEndpoint)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return fmt.Errorf("%w: ws endpoint %q must be a ws:// or wss:// url", ErrInvalidConfig, c.WSEndpoint)
		}
	}
	for name, value := range map[string]string{"refresh_interval": c.RefreshInterval, "claim_timeout": c.ClaimTimeout} {
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s %q must be a positive duration", ErrInvalidConfig, name, value)
		}
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Chain returns the configured network.
func (c *Config) Chain() (chain.Info, error) {
	return chain.ParseNetwork(c.Network)
}

// RPCOverrides parses the chain RPC override list.
func (c *Config) RPCOverrides() (chain.RPCOverrides, error) {
	return chain.ParseRPCOverrides(c.ChainRPC)
}

// RPCURL returns the override for the active chain, or the network default.
func (c *Config) RPCURL() (string, error) {
	info, err := c.Chain()
	if err != nil {
		return "", err
	}
	overrides, err := c.RPCOverrides()
	if err != nil {
		return "", err
	}
	return overrides.Endpoint(info), nil
}

// GetRefreshInterval returns the refresh interval as a duration.
func (c *Config) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// GetClaimTimeout returns the claim timeout as a duration.
func (c *Config) GetClaimTimeout() time.Duration {
	d, err := time.ParseDuration(c.ClaimTimeout)
	if err != nil || d <= 0 {
		return 3 * time.Minute
	}
	return d
}
