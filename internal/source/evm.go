package source

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tickwatch/internal/config"
	"tickwatch/internal/model"
	"tickwatch/internal/retry"
)

const v3PoolStateABIJSON = `[
  {"inputs": [], "name": "token0", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "token1", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [],
    "name": "tickSpacing",
    "outputs": [{"internalType": "int24", "name": "", "type": "int24"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "slot0",
    "outputs": [
      {"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"internalType": "int24", "name": "tick", "type": "int24"},
      {"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
      {"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
      {"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
      {"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
      {"internalType": "bool", "name": "unlocked", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	v3PoolStateABI     abi.ABI
	v3PoolStateABIOnce sync.Once
	v3PoolStateABIErr  error
)

// V3PoolStateABI returns the parsed pool state ABI (tokens, slot0, tickSpacing).
func V3PoolStateABI() (abi.ABI, error) {
	v3PoolStateABIOnce.Do(func() {
		v3PoolStateABI, v3PoolStateABIErr = abi.JSON(strings.NewReader(v3PoolStateABIJSON))
	})
	return v3PoolStateABI, v3PoolStateABIErr
}

// ContractCaller is the subset of chain.Client used by EVMSource.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EVMSource reads tick state from Uniswap/PancakeSwap V3 style pool contracts.
type EVMSource struct {
	caller       ContractCaller
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.RWMutex
	spacings map[common.Address]int64
}

func NewEVMSource(caller ContractCaller, maxRetries int, retryBackoff time.Duration, logger *zap.Logger) *EVMSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EVMSource{
		caller:       caller,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		logger:       logger,
		now:          time.Now,
		spacings:     make(map[common.Address]int64),
	}
}

// Fetch implements Source.
func (s *EVMSource) Fetch(ctx context.Context, pool config.Pool) (model.TickSnapshot, error) {
	if s.caller == nil {
		return model.TickSnapshot{}, fmt.Errorf("chain client is nil")
	}
	if !common.IsHexAddress(pool.Address) {
		return model.TickSnapshot{}, fmt.Errorf("pool %d: invalid address: %s", pool.ID, pool.Address)
	}
	addr := common.HexToAddress(pool.Address)

	var snap model.TickSnapshot
	err := retry.Backoff(ctx, s.maxRetries, s.retryBackoff, maxFetchBackoff, func(ctx context.Context, attempt int) error {
		var err error
		snap, err = s.fetchOnce(ctx, pool.ID, addr)
		if err != nil {
			s.logger.Warn("pool call failed",
				zap.Uint64("pool_id", pool.ID),
				zap.String("address", addr.Hex()),
				zap.Int("attempt", attempt+1),
				zap.String("kind", ErrorKind(err)),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("fetch pool %d: %w", pool.ID, err)
	}
	return snap, nil
}

func (s *EVMSource) fetchOnce(ctx context.Context, poolID uint64, addr common.Address) (model.TickSnapshot, error) {
	poolABI, err := V3PoolStateABI()
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("parse pool abi: %w", err)
	}

	spacing, err := s.tickSpacing(ctx, poolABI, addr)
	if err != nil {
		return model.TickSnapshot{}, err
	}
	if err := checkSpacing(poolID, spacing); err != nil {
		return model.TickSnapshot{}, err
	}

	values, err := s.call(ctx, poolABI, addr, "slot0")
	if err != nil {
		return model.TickSnapshot{}, err
	}
	if len(values) < 2 {
		return model.TickSnapshot{}, fmt.Errorf("%w: slot0 returned %d values", ErrMalformedResponse, len(values))
	}
	tick, err := int24Value(values[1])
	if err != nil {
		return model.TickSnapshot{}, fmt.Errorf("%w: slot0 tick: %v", ErrMalformedResponse, err)
	}

	return model.TickSnapshot{
		PoolID:      poolID,
		CurrentTick: tick,
		TickSpacing: spacing,
		FetchedAt:   s.now().UTC(),
	}, nil
}

// tickSpacing is immutable per pool, so it is read once and cached.
func (s *EVMSource) tickSpacing(ctx context.Context, poolABI abi.ABI, addr common.Address) (int64, error) {
	s.mu.RLock()
	spacing, ok := s.spacings[addr]
	s.mu.RUnlock()
	if ok {
		return spacing, nil
	}

	values, err := s.call(ctx, poolABI, addr, "tickSpacing")
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("%w: tickSpacing returned %d values", ErrMalformedResponse, len(values))
	}
	spacing, err = int24Value(values[0])
	if err != nil {
		return 0, fmt.Errorf("%w: tick spacing: %v", ErrMalformedResponse, err)
	}

	if spacing > 0 {
		s.mu.Lock()
		s.spacings[addr] = spacing
		s.mu.Unlock()
	}
	return spacing, nil
}

func (s *EVMSource) call(ctx context.Context, poolABI abi.ABI, pool common.Address, method string) ([]interface{}, error) {
	data, err := poolABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pool, Data: data}
	resp, err := s.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := poolABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %v", ErrMalformedResponse, method, err)
	}
	return values, nil
}

func int24Value(value interface{}) (int64, error) {
	var v *big.Int
	switch typed := value.(type) {
	case *big.Int:
		v = typed
	case int32:
		v = big.NewInt(int64(typed))
	case int64:
		v = big.NewInt(typed)
	default:
		return 0, fmt.Errorf("unsupported int type %T", value)
	}

	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", v.String())
	}
	return v.Int64(), nil
}
