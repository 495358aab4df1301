package chain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RPCOverrides maps chain id to a custom RPC endpoint.
type RPCOverrides map[int64]string

// ParseRPCOverrides parses a comma-separated list of "chainID=url" pairs,
// e.g. "80001=https://polygon-mumbai.example/v2/key,137=https://polygon.example".
// Empty input yields an empty map.
func ParseRPCOverrides(s string) (RPCOverrides, error) {
	overrides := make(RPCOverrides)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("rpc override %q: expected chainID=url", part)
		}

		id, err := strconv.ParseInt(strings.TrimSpace(kv[0]), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("rpc override %q: invalid chain id", part)
		}

		endpoint := strings.TrimSpace(kv[1])
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("rpc override %q: invalid url", part)
		}

		overrides[id] = endpoint
	}
	return overrides, nil
}

// Endpoint returns the override for the network if one exists, otherwise
// the network's default RPC endpoint.
func (o RPCOverrides) Endpoint(info Info) string {
	if u, ok := o[info.ChainID]; ok {
		return u
	}
	return info.RPC
}
