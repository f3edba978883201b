// internal/chains/ethereum/events.go
package ethereum

import (
	"blockchain-service/internal/domain"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ExtractIndexedUint returns the uint256 stored at topics[topicIndex] of the first log
// whose topics[0] is eventTopic. Logs are scanned in order; the first match wins.
// A receipt without such a log is a ProtocolMismatch: the contract did not emit what
// the integration expects, and retrying will not change that.
func ExtractIndexedUint(receipt *domain.Receipt, eventTopic common.Hash, topicIndex int) (*big.Int, error) {
	if receipt == nil {
		return nil, domain.Errorf(domain.ErrProtocolMismatch, "extract_event", "no receipt")
	}
	if topicIndex < 1 {
		return nil, domain.Errorf(domain.ErrEncoding, "extract_event", "topic index %d is not an indexed parameter", topicIndex)
	}

	for _, l := range receipt.Logs {
		if len(l.Topics) < topicIndex+1 || l.Topics[0] != eventTopic {
			continue
		}
		return new(big.Int).SetBytes(l.Topics[topicIndex].Bytes()), nil
	}

	return nil, domain.Errorf(domain.ErrProtocolMismatch, "extract_event",
		"transaction %s emitted no event %s with %d topics", receipt.TxHash.Hex(), eventTopic.Hex(), topicIndex+1)
}
