package drop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"drop-mint/internal/domain"
)

// maxMetadataBytes bounds the contract metadata document size.
const maxMetadataBytes = 1 << 20

// Metadata fetches the collection metadata referenced by contractURI.
// Media URIs inside the document are resolved through the IPFS gateway.
func (c *Contract) Metadata(ctx context.Context) (*domain.ContractMetadata, error) {
	out, err := c.call(ctx, DropABI, c.address, "contractURI")
	if err != nil {
		return nil, err
	}
	uri, _ := out[0].(string)
	if uri == "" {
		return nil, fmt.Errorf("contractURI: empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ResolveURI(uri), nil)
	if err != nil {
		return nil, fmt.Errorf("create metadata request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch metadata: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var meta domain.ContractMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	meta.Image = c.ResolveURI(meta.Image)

	c.logger.Debug("metadata loaded", zap.String("uri", uri), zap.String("name", meta.Name))
	return &meta, nil
}

// ResolveURI maps ipfs:// URIs onto the configured HTTP gateway. Other
// URIs are returned unchanged.
func (c *Contract) ResolveURI(uri string) string {
	const scheme = "ipfs://"
	if !strings.HasPrefix(uri, scheme) {
		return uri
	}
	path := strings.TrimPrefix(strings.TrimPrefix(uri, scheme), "ipfs/")
	return strings.TrimSuffix(c.gateway, "/") + "/" + path
}
