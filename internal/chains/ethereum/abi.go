// internal/chains/ethereum/abi.go
package ethereum

import (
	"blockchain-service/internal/domain"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Supported ABI types. Anything else is rejected with an encoding error.
const (
	TypeAddress = "address"
	TypeUint256 = "uint256"
)

const wordSize = 32

// FunctionCall is an encoded contract call: 4-byte selector plus packed arguments
type FunctionCall struct {
	selector [4]byte
	args     []byte
}

// Selector returns the 4-byte function selector
func (f FunctionCall) Selector() [4]byte {
	return f.selector
}

// EncodedArgs returns a copy of the packed arguments
func (f FunctionCall) EncodedArgs() []byte {
	return common.CopyBytes(f.args)
}

// Data returns selector followed by the packed arguments, ready to use as calldata
func (f FunctionCall) Data() []byte {
	data := make([]byte, 0, len(f.selector)+len(f.args))
	data = append(data, f.selector[:]...)
	return append(data, f.args...)
}

// Signature builds the canonical signature, e.g. "transfer(address,uint256)"
func Signature(name string, argTypes []string) string {
	return name + "(" + strings.Join(argTypes, ",") + ")"
}

// Selector returns the first 4 bytes of keccak256(signature)
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// EventSignatureHash returns keccak256 of a canonical event signature, e.g. "Snapshot(uint256)"
func EventSignatureHash(signature string) common.Hash {
	return crypto.Keccak256Hash([]byte(signature))
}

// NewFunctionCall validates and packs the arguments of a call.
// Validation happens before anything touches the network.
func NewFunctionCall(name string, argTypes []string, argValues []interface{}) (FunctionCall, error) {
	if name == "" {
		return FunctionCall{}, domain.Errorf(domain.ErrEncoding, "abi.encode", "function name is required")
	}
	if len(argTypes) != len(argValues) {
		return FunctionCall{}, domain.Errorf(domain.ErrEncoding, "abi.encode",
			"%s: %d types but %d values", name, len(argTypes), len(argValues))
	}

	args, err := arguments(argTypes)
	if err != nil {
		return FunctionCall{}, err
	}

	values := make([]interface{}, len(argValues))
	for i, v := range argValues {
		normalized, err := normalize(argTypes[i], v)
		if err != nil {
			return FunctionCall{}, domain.NewError(domain.ErrEncoding, "abi.encode",
				fmt.Sprintf("%s argument %d", name, i), err)
		}
		values[i] = normalized
	}

	packed, err := args.Pack(values...)
	if err != nil {
		return FunctionCall{}, domain.NewError(domain.ErrEncoding, "abi.encode", name, err)
	}

	return FunctionCall{
		selector: Selector(Signature(name, argTypes)),
		args:     packed,
	}, nil
}

// EncodeFunctionCall returns the calldata for name(argTypes...) with the given values
func EncodeFunctionCall(name string, argTypes []string, argValues []interface{}) ([]byte, error) {
	call, err := NewFunctionCall(name, argTypes, argValues)
	if err != nil {
		return nil, err
	}
	return call.Data(), nil
}

// DecodeReturn splits return data into 32-byte words and decodes them in order.
// address decodes to common.Address, uint256 to *big.Int.
func DecodeReturn(data []byte, outputTypes []string) ([]interface{}, error) {
	args, err := arguments(outputTypes)
	if err != nil {
		return nil, err
	}
	if len(data) < len(outputTypes)*wordSize {
		return nil, domain.Errorf(domain.ErrEncoding, "abi.decode",
			"return data is %d bytes, need %d", len(data), len(outputTypes)*wordSize)
	}

	for i, typ := range outputTypes {
		if typ == TypeAddress {
			if err := checkAddressWord(data[i*wordSize : (i+1)*wordSize]); err != nil {
				return nil, err
			}
		}
	}

	values, err := args.Unpack(data)
	if err != nil {
		return nil, domain.NewError(domain.ErrEncoding, "abi.decode", "", err)
	}
	return values, nil
}

// checkAddressWord rejects an address word with non-zero bytes in its 12-byte padding
func checkAddressWord(word []byte) error {
	for _, b := range word[:wordSize-common.AddressLength] {
		if b != 0 {
			return domain.Errorf(domain.ErrEncoding, "abi.decode",
				"address word %x has non-zero padding", word)
		}
	}
	return nil
}

// DecodeUint256 decodes a single uint256 return value
func DecodeUint256(data []byte) (*big.Int, error) {
	values, err := DecodeReturn(data, []string{TypeUint256})
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, domain.Errorf(domain.ErrEncoding, "abi.decode", "unexpected uint256 value %T", values[0])
	}
	return v, nil
}

// ParseAddress parses a 0x-prefixed hex address. It must decode to exactly 20 bytes.
func ParseAddress(s string) (common.Address, error) {
	raw, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return common.Address{}, domain.NewError(domain.ErrEncoding, "abi.address", s, err)
	}
	if len(raw) != common.AddressLength {
		return common.Address{}, domain.Errorf(domain.ErrEncoding, "abi.address",
			"%q decodes to %d bytes, want %d", s, len(raw), common.AddressLength)
	}
	return common.BytesToAddress(raw), nil
}

// FormatAddress renders an address in the lowercase 0x + 40 hex form
func FormatAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// ValidateAmount checks that v fits an unsigned 256-bit integer
func ValidateAmount(v *big.Int) error {
	if v == nil {
		return domain.Errorf(domain.ErrEncoding, "abi.uint256", "amount is required")
	}
	if v.Sign() < 0 {
		return domain.Errorf(domain.ErrEncoding, "abi.uint256", "negative amount %s", v)
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return domain.Errorf(domain.ErrEncoding, "abi.uint256", "amount exceeds 256 bits (%d bits)", v.BitLen())
	}
	return nil
}

func arguments(types []string) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		switch t {
		case TypeAddress, TypeUint256:
		default:
			return nil, domain.Errorf(domain.ErrEncoding, "abi", "unsupported type %q", t)
		}
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, domain.NewError(domain.ErrEncoding, "abi", t, err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args, nil
}

func normalize(typ string, v interface{}) (interface{}, error) {
	switch typ {
	case TypeAddress:
		return normalizeAddress(v)
	case TypeUint256:
		return normalizeUint256(v)
	}
	return nil, fmt.Errorf("unsupported type %q", typ)
}

func normalizeAddress(v interface{}) (common.Address, error) {
	switch a := v.(type) {
	case common.Address:
		return a, nil
	case *common.Address:
		if a == nil {
			return common.Address{}, fmt.Errorf("nil address")
		}
		return *a, nil
	case string:
		return ParseAddress(a)
	case []byte:
		if len(a) != common.AddressLength {
			return common.Address{}, fmt.Errorf("address is %d bytes, want %d", len(a), common.AddressLength)
		}
		return common.BytesToAddress(a), nil
	}
	return common.Address{}, fmt.Errorf("cannot use %T as address", v)
}

func normalizeUint256(v interface{}) (*big.Int, error) {
	var n *big.Int
	switch x := v.(type) {
	case *big.Int:
		n = x
	case *uint256.Int:
		if x == nil {
			return nil, fmt.Errorf("nil uint256")
		}
		n = x.ToBig()
	case uint64:
		n = new(big.Int).SetUint64(x)
	case int64:
		n = big.NewInt(x)
	case int:
		n = big.NewInt(int64(x))
	default:
		return nil, fmt.Errorf("cannot use %T as uint256", v)
	}
	if err := ValidateAmount(n); err != nil {
		return nil, err
	}
	return new(big.Int).Set(n), nil
}
