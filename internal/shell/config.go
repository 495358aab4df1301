// Package shell serves the mint page: one configurable HTML shell around the
// derived mint view, plus the JSON and ops endpoints.
package shell

import (
	"time"

	"drop-mint/internal/chain"
	"drop-mint/internal/mintview"
	"drop-mint/internal/observability"
)

// Default configuration values.
const (
	DefaultTitle        = "NFT Drop Minting"
	DefaultDescription  = "NFT Drop minting page"
	DefaultClaimTimeout = 3 * time.Minute
)

// Branding is the per-deployment text of the page.
type Branding struct {
	Title       string
	Description string
	Header      string // optional static header; omitted when empty
}

// Config is the explicit network and page configuration of a shell.
type Config struct {
	Network         chain.Info
	RPCURL          string
	ContractAddress string
	Branding        Branding

	Quantity     int           // Default: mintview.DefaultQuantity
	ClaimTimeout time.Duration // Default: DefaultClaimTimeout

	Metrics *observability.Metrics // Default: observability.DefaultMetrics
}

func (c Config) withDefaults() Config {
	if c.Branding.Title == "" {
		c.Branding.Title = DefaultTitle
	}
	if c.Branding.Description == "" {
		c.Branding.Description = DefaultDescription
	}
	if c.Quantity < 1 {
		c.Quantity = mintview.DefaultQuantity
	}
	if c.ClaimTimeout == 0 {
		c.ClaimTimeout = DefaultClaimTimeout
	}
	if c.Metrics == nil {
		c.Metrics = observability.DefaultMetrics
	}
	return c
}
