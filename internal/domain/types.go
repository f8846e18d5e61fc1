package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the EVM chain id the watcher reads from (e.g. 56 for BNB Smart Chain)
type Chain uint64

const (
	ChainEthereumMainnet Chain = 1
	ChainBSCMainnet      Chain = 56
)

// TransferRecord is a single token transfer event as reported by the ledger indexing API.
// Addresses are lowercase. Records are never persisted; the upstream source is authoritative.
type TransferRecord struct {
	Hash            string
	LogIndex        uint64
	BlockNumber     uint64
	From            string
	To              string
	ContractAddress string
	TokenName       string
	TokenSymbol     string
	TokenDecimal    string
	Value           string
	Timestamp       int64 // unix seconds
}

// DedupKey returns the key under which the transfer is recorded as notified.
// Only the transaction hash and the log index take part in the key.
func (r TransferRecord) DedupKey() DedupKey {
	return NewDedupKey(r.Hash, r.LogIndex)
}

// DedupKey identifies a transfer event in the dedup store, format: seen:<txHash>:<logIndex>
type DedupKey string

// NewDedupKey builds the dedup key for a transaction hash and log index
func NewDedupKey(txHash string, logIndex uint64) DedupKey {
	return DedupKey(fmt.Sprintf("%s:%s:%d", DEDUP_KEY_PREFIX, strings.ToLower(txHash), logIndex))
}

func (k DedupKey) String() string {
	return string(k)
}

// TokenIdentity is the human readable identity of a token contract.
// Any field the chain could not provide is nil.
type TokenIdentity struct {
	Address  string  `json:"address"`
	Symbol   *string `json:"symbol"`
	Name     *string `json:"name"`
	Decimals *uint8  `json:"decimals"`
}

// IsEmpty reports whether none of the descriptive fields were resolved
func (t TokenIdentity) IsEmpty() bool {
	return t.Symbol == nil && t.Name == nil && t.Decimals == nil
}

// RunResult summarizes one pipeline run
type RunResult struct {
	Checked          int `json:"checked"`
	Matched          int `json:"matched"`
	Posted           int `json:"posted"`
	SkippedDuplicate int `json:"skippedDuplicate"`
}

// NormalizeAddress lowercases and trims an address for comparisons
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// ChecksumAddress returns the EIP-55 form of a hex address.
// Inputs that are not hex addresses are returned trimmed but otherwise unchanged.
func ChecksumAddress(address string) string {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return address
	}
	return common.HexToAddress(address).Hex()
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
