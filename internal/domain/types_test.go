package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
)

func TestTransferRecord_DedupKey(t *testing.T) {
	t.Run("same hash and log index yield the same key", func(t *testing.T) {
		a := domain.TransferRecord{Hash: "0xabc", LogIndex: 3, TokenName: "SuperKey", TokenSymbol: "SKEY"}
		b := domain.TransferRecord{Hash: "0xabc", LogIndex: 3, TokenName: "SUPERKEY", TokenSymbol: "skey", Value: "42"}

		assert.Equal(t, a.DedupKey(), b.DedupKey())
		assert.Equal(t, domain.DedupKey("seen:0xabc:3"), a.DedupKey())
	})

	t.Run("different log index yields a different key", func(t *testing.T) {
		a := domain.TransferRecord{Hash: "0xabc", LogIndex: 0}
		b := domain.TransferRecord{Hash: "0xabc", LogIndex: 1}

		assert.NotEqual(t, a.DedupKey(), b.DedupKey())
	})

	t.Run("hash casing does not change the key", func(t *testing.T) {
		assert.Equal(t, domain.NewDedupKey("0xABCDEF", 0), domain.NewDedupKey("0xabcdef", 0))
	})
}

func TestChecksumAddress(t *testing.T) {
	assert.Equal(t,
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		domain.ChecksumAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"))
	assert.Equal(t, "not-an-address", domain.ChecksumAddress(" not-an-address "))
}

func TestUpstreamError(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name     string
		err      *domain.UpstreamError
		expected string
	}{
		{
			name:     "status and body",
			err:      &domain.UpstreamError{Service: domain.SERVICE_TELEGRAM, StatusCode: 400, Message: "Bad Request: chat not found"},
			expected: "Telegram error 400: Bad Request: chat not found",
		},
		{
			name:     "message only",
			err:      &domain.UpstreamError{Service: domain.SERVICE_ETHERSCAN, Message: "NOTOK"},
			expected: "Etherscan error: NOTOK",
		},
		{
			name:     "wrapped cause",
			err:      &domain.UpstreamError{Service: domain.SERVICE_ETHERSCAN, Err: cause},
			expected: "Etherscan error: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}

	wrapped := fmt.Errorf("fetch: %w", &domain.UpstreamError{Service: domain.SERVICE_ETHERSCAN, Err: cause})
	assert.True(t, domain.IsUpstreamError(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.False(t, domain.IsConfigError(wrapped))
}

func TestConfigError(t *testing.T) {
	err := &domain.ConfigError{Missing: []string{"watch.address", "etherscan.api_key"}}
	assert.Equal(t, "missing required configuration: watch.address, etherscan.api_key", err.Error())
	assert.True(t, domain.IsConfigError(fmt.Errorf("load: %w", err)))
}
