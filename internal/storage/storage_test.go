package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickwatch/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.jsonl")
	store := NewJsonlStorage(path)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.PutObservations(ctx, []model.Observation{
		{PoolID: 1135, PoolName: "OSMO/ATOM", CurrentTick: 498, TickSpacing: 100, LowerTick: 400, UpperTick: 500, ObservedAt: now},
	}))
	require.NoError(t, store.PutAlerts(ctx, []model.Alert{
		{PoolID: 1135, Kind: "near_threshold", Boundary: "upper", PreviousTick: 500, CurrentTick: 498, RaisedAt: now},
	}))
	require.NoError(t, store.PutAlerts(ctx, nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var kinds []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		kinds = append(kinds, rec.Kind)

		if rec.Kind == recordAlert {
			var alert model.Alert
			require.NoError(t, json.Unmarshal(rec.Data, &alert))
			assert.Equal(t, "upper", alert.Boundary)
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{recordObservation, recordAlert}, kinds)
}

type failingSink struct{ err error }

func (f failingSink) PutObservations(context.Context, []model.Observation) error { return f.err }

func (f failingSink) PutAlerts(context.Context, []model.Alert) error { return f.err }

func TestMultiCombinesErrors(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	m := Multi{failingSink{err: errA}, Discard{}, failingSink{err: errB}}

	err := m.PutAlerts(context.Background(), []model.Alert{{PoolID: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	assert.NoError(t, Multi{Discard{}}.PutObservations(context.Background(), nil))
}
