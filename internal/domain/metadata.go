package domain

// ContractMetadata is the collection-level metadata published by the drop contract.
type ContractMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"` // URI, usually ipfs://
}
