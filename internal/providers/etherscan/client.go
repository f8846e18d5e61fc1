package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/ratelimit"
)

const (
	statusOK             = "1"
	messageNoTransaction = "No transactions found"
)

// TokenTransfer is a single entry of the account/tokentx result
type TokenTransfer struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	LogIndex        string `json:"logIndex"`
	From            string `json:"from"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
	Value           string `json:"value"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// Response is the common Etherscan API envelope.
// Result is an array on success and a string describing the problem otherwise.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Config holds the Etherscan client configuration
type Config struct {
	APIURL   string
	APIKey   string
	ChainID  domain.Chain
	PageSize int
}

// Client defines the interface for the ledger indexing API to enable mocking
//
//go:generate mockgen -source=client.go -destination=../../mocks/etherscan_client.go -package=mocks -mock_names=Client=MockEtherscanClient
type Client interface {
	// FetchRecentTransfers returns the most recent token transfers involving the watched address, newest first
	FetchRecentTransfers(ctx context.Context, watched string) ([]domain.TransferRecord, error)
}

// EtherscanClient implements Client against the Etherscan v2 multichain API
type EtherscanClient struct {
	httpClient adapter.HTTPClient
	limiter    ratelimit.Limiter
	json       adapter.JSON
	cfg        Config
}

// NewClient creates a new Etherscan client
func NewClient(httpClient adapter.HTTPClient, limiter ratelimit.Limiter, json adapter.JSON, cfg Config) Client {
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = domain.DEFAULT_PAGE_SIZE
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = domain.ChainBSCMainnet
	}

	return &EtherscanClient{
		httpClient: httpClient,
		limiter:    limiter,
		json:       json,
		cfg:        cfg,
	}
}

// FetchRecentTransfers calls account/tokentx for the watched address
func (c *EtherscanClient) FetchRecentTransfers(ctx context.Context, watched string) ([]domain.TransferRecord, error) {
	var missing []string
	if watched == "" {
		missing = append(missing, "watch.address")
	}
	if c.cfg.APIKey == "" {
		missing = append(missing, "etherscan.api_key")
	}
	if len(missing) > 0 {
		return nil, &domain.ConfigError{Missing: missing}
	}

	if err := c.limiter.Wait(ctx, ratelimit.PROVIDER_ETHERSCAN); err != nil {
		return nil, &domain.UpstreamError{Service: domain.SERVICE_ETHERSCAN, Err: err}
	}

	respBody, err := c.httpClient.GetBytes(ctx, c.buildURL(watched), nil)
	if err != nil {
		if statusErr, ok := adapter.AsHTTPStatusError(err); ok {
			return nil, &domain.UpstreamError{
				Service:    domain.SERVICE_ETHERSCAN,
				StatusCode: statusErr.StatusCode,
				Message:    statusErr.Body,
			}
		}
		return nil, &domain.UpstreamError{Service: domain.SERVICE_ETHERSCAN, Err: err}
	}

	var response Response
	if err := c.json.Unmarshal(respBody, &response); err != nil {
		return nil, &domain.UpstreamError{
			Service: domain.SERVICE_ETHERSCAN,
			Message: "invalid response",
			Err:     err,
		}
	}

	if response.Status != statusOK {
		if response.Message == messageNoTransaction {
			return []domain.TransferRecord{}, nil
		}

		message := response.Message
		var details string
		if err := c.json.Unmarshal(response.Result, &details); err == nil && details != "" {
			message = fmt.Sprintf("%s: %s", message, details)
		}
		return nil, &domain.UpstreamError{Service: domain.SERVICE_ETHERSCAN, Message: message}
	}

	var transfers []TokenTransfer
	if err := c.json.Unmarshal(response.Result, &transfers); err != nil {
		return nil, &domain.UpstreamError{
			Service: domain.SERVICE_ETHERSCAN,
			Message: "invalid result",
			Err:     err,
		}
	}

	records := make([]domain.TransferRecord, 0, len(transfers))
	for _, t := range transfers {
		records = append(records, t.toRecord())
	}

	return records, nil
}

func (c *EtherscanClient) buildURL(watched string) string {
	params := url.Values{}
	params.Set("chainid", strconv.FormatUint(uint64(c.cfg.ChainID), 10))
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("address", watched)
	params.Set("page", "1")
	params.Set("offset", strconv.Itoa(c.cfg.PageSize))
	params.Set("sort", "desc")
	params.Set("apikey", c.cfg.APIKey)

	return fmt.Sprintf("%s?%s", strings.TrimRight(c.cfg.APIURL, "?"), params.Encode())
}

// toRecord converts the wire entry into a domain record.
// Numeric fields that are absent or malformed become zero.
func (t TokenTransfer) toRecord() domain.TransferRecord {
	logIndex, _ := strconv.ParseUint(t.LogIndex, 10, 64)
	blockNumber, _ := strconv.ParseUint(t.BlockNumber, 10, 64)
	timestamp, _ := strconv.ParseInt(t.TimeStamp, 10, 64)

	return domain.TransferRecord{
		Hash:            t.Hash,
		LogIndex:        logIndex,
		BlockNumber:     blockNumber,
		From:            domain.NormalizeAddress(t.From),
		To:              domain.NormalizeAddress(t.To),
		ContractAddress: domain.NormalizeAddress(t.ContractAddress),
		TokenName:       t.TokenName,
		TokenSymbol:     t.TokenSymbol,
		TokenDecimal:    t.TokenDecimal,
		Value:           t.Value,
		Timestamp:       timestamp,
	}
}
