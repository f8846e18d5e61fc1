package ethereum

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/domain"
)

const (
	// erc20ABIJSON is the metadata subset of the ERC-20 interface with string return values
	erc20ABIJSON = `[
		{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"}
	]`

	// erc20Bytes32ABIJSON covers legacy tokens (e.g. MKR) that return bytes32 for name and symbol
	erc20Bytes32ABIJSON = `[
		{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"bytes32"}],"payable":false,"stateMutability":"view","type":"function"},
		{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"payable":false,"stateMutability":"view","type":"function"}
	]`
)

var (
	erc20ABI        = mustParseABI(erc20ABIJSON)
	erc20Bytes32ABI = mustParseABI(erc20Bytes32ABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return parsed
}

// ERC20Reader reads token metadata from ERC-20 contracts over JSON-RPC
//
//go:generate mockgen -source=client.go -destination=../../mocks/erc20_reader.go -package=mocks -mock_names=ERC20Reader=MockERC20Reader
type ERC20Reader interface {
	// ERC20Name calls name() and decodes it as string
	ERC20Name(ctx context.Context, contractAddress string) (string, error)

	// ERC20Symbol calls symbol() and decodes it as string
	ERC20Symbol(ctx context.Context, contractAddress string) (string, error)

	// ERC20Decimals calls decimals() and decodes it as uint8
	ERC20Decimals(ctx context.Context, contractAddress string) (uint8, error)

	// ERC20NameBytes32 calls name() and decodes it as bytes32
	ERC20NameBytes32(ctx context.Context, contractAddress string) ([32]byte, error)

	// ERC20SymbolBytes32 calls symbol() and decodes it as bytes32
	ERC20SymbolBytes32(ctx context.Context, contractAddress string) ([32]byte, error)

	// ChainID returns the chain id of the connected node
	ChainID(ctx context.Context) (domain.Chain, error)

	// Close closes the connection
	Close()
}

type erc20Reader struct {
	client adapter.EthClient
}

// NewERC20Reader creates a reader backed by the given client
func NewERC20Reader(client adapter.EthClient) ERC20Reader {
	return &erc20Reader{client: client}
}

// call packs the method of contractABI, executes eth_call against the latest block and unpacks into out
func (r *erc20Reader) call(ctx context.Context, contractABI abi.ABI, contractAddress, method string, out interface{}) error {
	if !common.IsHexAddress(contractAddress) {
		return fmt.Errorf("invalid contract address: %s", contractAddress)
	}

	data, err := contractABI.Pack(method)
	if err != nil {
		return fmt.Errorf("failed to pack data: %w", err)
	}

	contractAddr := common.HexToAddress(contractAddress)
	result, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contractAddr,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to call contract: %w", err)
	}

	if err := contractABI.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("failed to unpack %s result: %w", method, err)
	}

	return nil
}

func (r *erc20Reader) ERC20Name(ctx context.Context, contractAddress string) (string, error) {
	var name string
	if err := r.call(ctx, erc20ABI, contractAddress, "name", &name); err != nil {
		return "", err
	}
	return name, nil
}

func (r *erc20Reader) ERC20Symbol(ctx context.Context, contractAddress string) (string, error) {
	var symbol string
	if err := r.call(ctx, erc20ABI, contractAddress, "symbol", &symbol); err != nil {
		return "", err
	}
	return symbol, nil
}

func (r *erc20Reader) ERC20Decimals(ctx context.Context, contractAddress string) (uint8, error) {
	var decimals uint8
	if err := r.call(ctx, erc20ABI, contractAddress, "decimals", &decimals); err != nil {
		return 0, err
	}
	return decimals, nil
}

func (r *erc20Reader) ERC20NameBytes32(ctx context.Context, contractAddress string) ([32]byte, error) {
	var name [32]byte
	if err := r.call(ctx, erc20Bytes32ABI, contractAddress, "name", &name); err != nil {
		return [32]byte{}, err
	}
	return name, nil
}

func (r *erc20Reader) ERC20SymbolBytes32(ctx context.Context, contractAddress string) ([32]byte, error) {
	var symbol [32]byte
	if err := r.call(ctx, erc20Bytes32ABI, contractAddress, "symbol", &symbol); err != nil {
		return [32]byte{}, err
	}
	return symbol, nil
}

func (r *erc20Reader) ChainID(ctx context.Context) (domain.Chain, error) {
	id, err := r.client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain id: %w", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id out of range: %s", id.String())
	}
	return domain.Chain(id.Uint64()), nil
}

// Close closes the underlying client
func (r *erc20Reader) Close() {
	r.client.Close()
}
