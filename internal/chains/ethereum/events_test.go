package ethereum

import (
	"blockchain-service/internal/chains/ethereum/ethtest"
	"blockchain-service/internal/domain"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIndexedUint(t *testing.T) {
	transferTopic := EventSignatureHash("Transfer(address,address,uint256)")

	receipt := &domain.Receipt{
		TxHash: common.HexToHash("0xaa"),
		Logs: []domain.Log{
			{Topics: []common.Hash{transferTopic, ethtest.UintTopic(1), ethtest.UintTopic(2)}},
			{Topics: []common.Hash{SnapshotEventTopic, ethtest.UintTopic(42)}},
			{Topics: []common.Hash{SnapshotEventTopic, ethtest.UintTopic(43)}},
		},
	}

	id, err := ExtractIndexedUint(receipt, SnapshotEventTopic, SnapshotIDTopicIndex)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.Int64(), "first matching log wins")
}

func TestExtractIndexedUintSkipsShortLogs(t *testing.T) {
	receipt := &domain.Receipt{
		Logs: []domain.Log{
			{Topics: []common.Hash{SnapshotEventTopic}},
			{Topics: []common.Hash{SnapshotEventTopic, ethtest.UintTopic(9)}},
		},
	}

	id, err := ExtractIndexedUint(receipt, SnapshotEventTopic, SnapshotIDTopicIndex)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id.Int64())
}

func TestExtractIndexedUintNoMatch(t *testing.T) {
	tests := map[string]*domain.Receipt{
		"nil receipt": nil,
		"no logs":     {},
		"other event": {Logs: []domain.Log{{Topics: []common.Hash{EventSignatureHash("Other(uint256)"), ethtest.UintTopic(1)}}}},
		"no topics":   {Logs: []domain.Log{{Data: []byte{1}}}},
	}

	for name, receipt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractIndexedUint(receipt, SnapshotEventTopic, SnapshotIDTopicIndex)
			assert.ErrorIs(t, err, domain.ErrProtocolMismatch)
		})
	}
}

func TestExtractIndexedUintBadIndex(t *testing.T) {
	_, err := ExtractIndexedUint(&domain.Receipt{}, SnapshotEventTopic, 0)
	assert.ErrorIs(t, err, domain.ErrEncoding)
}
