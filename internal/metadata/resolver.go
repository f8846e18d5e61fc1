package metadata

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
	"github.com/feral-file/ff-transfer-alert/internal/logger"
	"github.com/feral-file/ff-transfer-alert/internal/providers/ethereum"
)

// DefaultCallTimeout bounds every on-chain read
const DefaultCallTimeout = 10 * time.Second

// Resolver resolves the human readable identity of a token contract
//
//go:generate mockgen -source=resolver.go -destination=../mocks/metadata_resolver.go -package=mocks -mock_names=Resolver=MockMetadataResolver
type Resolver interface {
	// ResolveIdentity never fails; fields the chain cannot provide are nil.
	// Results are memoized per checksummed address for the resolver's lifetime.
	ResolveIdentity(ctx context.Context, tokenAddress string) domain.TokenIdentity
}

// resolution is the working state threaded through the strategies
type resolution struct {
	identity domain.TokenIdentity

	// standardUsable is set when the string ABI answered the symbol or name read
	standardUsable bool
}

// strategy fills whatever fields of res it can; each strategy decides from res whether it applies
type strategy struct {
	name string
	run  func(ctx context.Context, r *resolver, address string, res *resolution)
}

// strategies run in order for every new address
var strategies = []strategy{
	{name: "standard", run: resolveStandard},
	{name: "bytes32", run: resolveBytes32},
	{name: "decimals", run: resolveDecimals},
}

type resolver struct {
	reader      ethereum.ERC20Reader
	callTimeout time.Duration

	mu    sync.RWMutex
	cache map[string]domain.TokenIdentity
	group singleflight.Group
}

// NewResolver creates a resolver reading from the given ERC-20 reader
func NewResolver(reader ethereum.ERC20Reader, callTimeout time.Duration) Resolver {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}

	return &resolver{
		reader:      reader,
		callTimeout: callTimeout,
		cache:       make(map[string]domain.TokenIdentity),
	}
}

func (r *resolver) ResolveIdentity(ctx context.Context, tokenAddress string) domain.TokenIdentity {
	tokenAddress = strings.TrimSpace(tokenAddress)
	if !common.IsHexAddress(tokenAddress) {
		logger.DebugCtx(ctx, "Skipping identity resolution for invalid address", zap.String("address", tokenAddress))
		return domain.TokenIdentity{Address: tokenAddress}
	}

	key := domain.ChecksumAddress(tokenAddress)
	if identity, ok := r.lookup(key); ok {
		return identity
	}

	// The resolution outlives any single caller: concurrent callers share it and the
	// outcome is cached, so it must not be cut short by the first caller's cancellation.
	detached := context.WithoutCancel(ctx)
	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		if identity, ok := r.lookup(key); ok {
			return identity, nil
		}

		identity := r.resolve(detached, key)

		r.mu.Lock()
		r.cache[key] = identity
		r.mu.Unlock()

		return identity, nil
	})

	return v.(domain.TokenIdentity)
}

func (r *resolver) lookup(key string) (domain.TokenIdentity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.cache[key]
	return identity, ok
}

func (r *resolver) resolve(ctx context.Context, address string) domain.TokenIdentity {
	res := &resolution{identity: domain.TokenIdentity{Address: address}}
	for _, s := range strategies {
		s.run(ctx, r, address, res)
	}

	logger.DebugCtx(ctx, "Resolved token identity",
		zap.String("address", address),
		zap.Bool("empty", res.identity.IsEmpty()),
	)
	return res.identity
}

// callCtx bounds a single on-chain read
func (r *resolver) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.callTimeout)
}

func resolveStandard(ctx context.Context, r *resolver, address string, res *resolution) {
	callCtx, cancel := r.callCtx(ctx)
	symbol, err := r.reader.ERC20Symbol(callCtx, address)
	cancel()
	if err != nil {
		logDecodeFailure(ctx, "standard", "symbol", address, err)
	} else {
		res.standardUsable = true
		res.identity.Symbol = domain.StringPtr(symbol)
	}

	callCtx, cancel = r.callCtx(ctx)
	name, err := r.reader.ERC20Name(callCtx, address)
	cancel()
	if err != nil {
		logDecodeFailure(ctx, "standard", "name", address, err)
	} else {
		res.standardUsable = true
		res.identity.Name = domain.StringPtr(name)
	}

	callCtx, cancel = r.callCtx(ctx)
	decimals, err := r.reader.ERC20Decimals(callCtx, address)
	cancel()
	if err != nil {
		logDecodeFailure(ctx, "standard", "decimals", address, err)
	} else {
		res.identity.Decimals = &decimals
	}
}

func resolveBytes32(ctx context.Context, r *resolver, address string, res *resolution) {
	if res.standardUsable {
		return
	}

	callCtx, cancel := r.callCtx(ctx)
	symbol, err := r.reader.ERC20SymbolBytes32(callCtx, address)
	cancel()
	if err != nil {
		logDecodeFailure(ctx, "bytes32", "symbol", address, err)
	} else {
		res.identity.Symbol = bytes32ToString(symbol)
	}

	callCtx, cancel = r.callCtx(ctx)
	name, err := r.reader.ERC20NameBytes32(callCtx, address)
	cancel()
	if err != nil {
		logDecodeFailure(ctx, "bytes32", "name", address, err)
	} else {
		res.identity.Name = bytes32ToString(name)
	}
}

func resolveDecimals(ctx context.Context, r *resolver, address string, res *resolution) {
	if res.identity.Decimals != nil {
		return
	}

	callCtx, cancel := r.callCtx(ctx)
	decimals, err := r.reader.ERC20Decimals(callCtx, address)
	cancel()
	if err != nil {
		logDecodeFailure(ctx, "decimals", "decimals", address, err)
		return
	}
	res.identity.Decimals = &decimals
}

// bytes32ToString strips the zero padding and surrounding whitespace; empty becomes nil
func bytes32ToString(b [32]byte) *string {
	trimmed := bytes.TrimRight(b[:], "\x00")
	if !utf8.Valid(trimmed) {
		trimmed = bytes.ToValidUTF8(trimmed, nil)
	}
	return domain.StringPtr(strings.TrimSpace(string(trimmed)))
}

func logDecodeFailure(ctx context.Context, strategy, field, address string, err error) {
	logger.DebugCtx(ctx, "Token metadata read failed",
		zap.String("strategy", strategy),
		zap.String("field", field),
		zap.String("address", address),
		zap.Error(err),
	)
}
