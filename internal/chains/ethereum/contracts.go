// internal/chains/ethereum/contracts.go
package ethereum

import "github.com/ethereum/go-ethereum/common"

// Function describes a contract function by name and argument types
type Function struct {
	Name    string
	Inputs  []string
	Outputs []string
}

// Signature returns the canonical signature of the function
func (f Function) Signature() string {
	return Signature(f.Name, f.Inputs)
}

// Encode packs a call to f with the given argument values
func (f Function) Encode(values ...interface{}) (FunctionCall, error) {
	return NewFunctionCall(f.Name, f.Inputs, values)
}

// Contract surface consumed by the wallet
var (
	// KRWT / property token (ERC-20 with snapshots)
	BalanceOf   = Function{Name: "balanceOf", Inputs: []string{TypeAddress}, Outputs: []string{TypeUint256}}
	Transfer    = Function{Name: "transfer", Inputs: []string{TypeAddress, TypeUint256}}
	TotalSupply = Function{Name: "totalSupply", Outputs: []string{TypeUint256}}
	Snapshot    = Function{Name: "snapshot", Outputs: []string{TypeUint256}}

	// DividendDistributor
	CreateDividend = Function{Name: "createDividend", Inputs: []string{TypeUint256, TypeUint256}}
)

// SnapshotEventSignature is the canonical form of `event Snapshot(uint256 indexed id)`
const SnapshotEventSignature = "Snapshot(uint256)"

// SnapshotEventTopic is topics[0] of every Snapshot event
var SnapshotEventTopic common.Hash = EventSignatureHash(SnapshotEventSignature)

// SnapshotIDTopicIndex is the position of the indexed id within a Snapshot log's topics
const SnapshotIDTopicIndex = 1
