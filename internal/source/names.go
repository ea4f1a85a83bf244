package source

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"tickwatch/internal/config"
)

// Some older tokens return bytes32 from symbol(), so both shapes are tried.
const (
	erc20SymbolStringJSON  = `[{"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}]`
	erc20SymbolBytes32JSON = `[{"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}]`
)

var (
	erc20SymbolABIs     [2]abi.ABI
	erc20SymbolABIsOnce sync.Once
	erc20SymbolABIsErr  error
)

func erc20SymbolABI() ([2]abi.ABI, error) {
	erc20SymbolABIsOnce.Do(func() {
		for i, raw := range []string{erc20SymbolStringJSON, erc20SymbolBytes32JSON} {
			parsed, err := abi.JSON(strings.NewReader(raw))
			if err != nil {
				erc20SymbolABIsErr = err
				return
			}
			erc20SymbolABIs[i] = parsed
		}
	})
	return erc20SymbolABIs, erc20SymbolABIsErr
}

// PoolName derives a "SYM0/SYM1" label for an EVM pool from its token
// contracts. Tokens without a readable symbol fall back to their short hex.
func (s *EVMSource) PoolName(ctx context.Context, pool config.Pool) (string, error) {
	if s.caller == nil {
		return "", fmt.Errorf("chain client is nil")
	}
	if !common.IsHexAddress(pool.Address) {
		return "", fmt.Errorf("pool %d: invalid address: %s", pool.ID, pool.Address)
	}
	addr := common.HexToAddress(pool.Address)

	poolABI, err := V3PoolStateABI()
	if err != nil {
		return "", fmt.Errorf("parse pool abi: %w", err)
	}

	symbols := make([]string, 0, 2)
	for _, method := range []string{"token0", "token1"} {
		values, err := s.call(ctx, poolABI, addr, method)
		if err != nil {
			return "", err
		}
		if len(values) != 1 {
			return "", fmt.Errorf("%w: %s returned %d values", ErrMalformedResponse, method, len(values))
		}
		token, ok := values[0].(common.Address)
		if !ok {
			return "", fmt.Errorf("%w: %s: unsupported address type %T", ErrMalformedResponse, method, values[0])
		}
		symbols = append(symbols, s.tokenSymbol(ctx, token))
	}
	return strings.Join(symbols, "/"), nil
}

func (s *EVMSource) tokenSymbol(ctx context.Context, token common.Address) string {
	parsed, err := erc20SymbolABI()
	if err == nil {
		for _, symbolABI := range parsed {
			if symbol, ok := s.callSymbol(ctx, symbolABI, token); ok && symbol != "" {
				return symbol
			}
		}
	}
	s.logger.Debug("token symbol unavailable", zap.String("token", token.Hex()))
	hex := token.Hex()
	return hex[:6] + ".." + hex[len(hex)-4:]
}

func (s *EVMSource) callSymbol(ctx context.Context, symbolABI abi.ABI, token common.Address) (string, bool) {
	data, err := symbolABI.Pack("symbol")
	if err != nil {
		return "", false
	}
	resp, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return "", false
	}
	values, err := symbolABI.Unpack("symbol", resp)
	if err != nil || len(values) != 1 {
		return "", false
	}
	switch v := values[0].(type) {
	case string:
		return v, true
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	default:
		return "", false
	}
}

// ResolvePoolNames fills in missing names of EVM pools in place. Lookup
// failures are logged and leave the pool unnamed.
func ResolvePoolNames(ctx context.Context, s *EVMSource, pools []config.Pool, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for i := range pools {
		if pools[i].Source != config.SourceEVM || pools[i].Name != "" {
			continue
		}
		name, err := s.PoolName(ctx, pools[i])
		if err != nil {
			logger.Warn("pool name lookup failed", zap.Uint64("pool_id", pools[i].ID), zap.Error(err))
			continue
		}
		pools[i].Name = name
		logger.Info("pool name resolved", zap.Uint64("pool_id", pools[i].ID), zap.String("pool_name", name))
	}
}
