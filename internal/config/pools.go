package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Pool sources.
const (
	SourceLCD = "lcd"
	SourceEVM = "evm"
)

// Pool is one monitored pool. It is immutable after loading.
type Pool struct {
	ID        uint64 `mapstructure:"id"`
	Threshold int64  `mapstructure:"threshold"`
	Name      string `mapstructure:"name"`
	Source    string `mapstructure:"source"`
	Address   string `mapstructure:"address"`
}

// DisplayName returns the configured name or a generated one.
func (p Pool) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Pool #%d", p.ID)
}

// ValidatePools checks ids, thresholds, and source settings.
func ValidatePools(pools []Pool) error {
	seen := make(map[uint64]struct{}, len(pools))
	for _, pool := range pools {
		if _, ok := seen[pool.ID]; ok {
			return fmt.Errorf("duplicate pool id: %d", pool.ID)
		}
		seen[pool.ID] = struct{}{}

		if pool.Threshold < 0 {
			return fmt.Errorf("pool %d: threshold must be >= 0", pool.ID)
		}
		switch pool.Source {
		case SourceLCD:
		case SourceEVM:
			if !common.IsHexAddress(pool.Address) {
				return fmt.Errorf("pool %d: invalid address: %s", pool.ID, pool.Address)
			}
		default:
			return fmt.Errorf("pool %d: unsupported source: %s", pool.ID, pool.Source)
		}
	}
	return nil
}

// ParsePoolSpec parses the flag form id:threshold[:name].
func ParsePoolSpec(input string) (Pool, error) {
	parts := strings.SplitN(strings.TrimSpace(input), ":", 3)
	if len(parts) < 2 {
		return Pool{}, fmt.Errorf("invalid pool spec %q: want id:threshold[:name]", input)
	}

	id, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Pool{}, fmt.Errorf("invalid pool id in %q: %w", input, err)
	}
	threshold, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Pool{}, fmt.Errorf("invalid threshold in %q: %w", input, err)
	}

	pool := Pool{ID: id, Threshold: threshold, Source: SourceLCD}
	if len(parts) == 3 {
		pool.Name = strings.TrimSpace(parts[2])
	}
	return pool, nil
}

// loadPools reads the structured pools list, then any --pool flag specs.
// Flag specs replace file entries that share an id.
func loadPools(v *viper.Viper) ([]Pool, error) {
	var pools []Pool
	if v.IsSet("pools") {
		if err := v.UnmarshalKey("pools", &pools); err != nil {
			return nil, fmt.Errorf("decode pools: %w", err)
		}
	}

	index := make(map[uint64]int, len(pools))
	for i := range pools {
		pools[i].Source = normalizeSource(pools[i].Source)
		pools[i].Name = strings.TrimSpace(pools[i].Name)
		index[pools[i].ID] = i
	}

	for _, spec := range getStringSlice(v, "pool") {
		pool, err := ParsePoolSpec(spec)
		if err != nil {
			return nil, err
		}
		if i, ok := index[pool.ID]; ok {
			pools[i] = pool
			continue
		}
		index[pool.ID] = len(pools)
		pools = append(pools, pool)
	}

	return pools, nil
}

func normalizeSource(source string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		return SourceLCD
	}
	return source
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
