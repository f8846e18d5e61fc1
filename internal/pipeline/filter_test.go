package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/pipeline"
)

func TestFilterIncoming(t *testing.T) {
	const watched = "0x00000000000000000000000000000000000000aa"

	records := []domain.TransferRecord{
		{Hash: "0x1", To: watched, TokenName: "SuperKey", TokenSymbol: "SKEY"},
		{Hash: "0x2", To: "0x00000000000000000000000000000000000000bb", TokenName: "SuperKey", TokenSymbol: "SKEY"},
		{Hash: "0x3", To: watched, TokenName: "Tether USD", TokenSymbol: "USDT"},
		{Hash: "0x4", To: "0x00000000000000000000000000000000000000AA", TokenName: "", TokenSymbol: "key"},
		{Hash: "0x5", To: watched, TokenName: "Monkey Coin", TokenSymbol: "MONK"},
		{Hash: "0x6", To: watched, TokenName: "KE", TokenSymbol: "Y"},
	}

	tests := []struct {
		name     string
		watched  string
		term     string
		expected []string
	}{
		{
			name:     "incoming matches in original order",
			watched:  watched,
			term:     "KEY",
			expected: []string{"0x1", "0x4", "0x5"},
		},
		{
			name:     "watched address casing is ignored",
			watched:  "0x00000000000000000000000000000000000000AA",
			term:     "key",
			expected: []string{"0x1", "0x4", "0x5"},
		},
		{
			name:     "term spanning name and symbol matches through the separator",
			watched:  watched,
			term:     "KE Y",
			expected: []string{"0x6"},
		},
		{
			name:     "no matches",
			watched:  watched,
			term:     "DOGE",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pipeline.FilterIncoming(records, tt.watched, tt.term)

			hashes := make([]string, 0, len(got))
			for _, r := range got {
				hashes = append(hashes, r.Hash)
			}
			assert.Equal(t, tt.expected, hashes)
		})
	}
}

func TestFilterIncoming_Empty(t *testing.T) {
	assert.Empty(t, pipeline.FilterIncoming(nil, "0xaa", "KEY"))
}
