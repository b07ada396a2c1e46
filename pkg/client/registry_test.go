package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/insight-stream/pkg/insight"
)

func TestRegistrySetGetClear(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Get(insight.KindCPS)
	require.False(t, ok)

	reg.Set(insight.KindCPS, Operation{Key: insight.KindCPS, Status: OperationStatusRunning})

	op, ok := reg.Get(insight.KindCPS)
	require.True(t, ok)
	assert.Equal(t, OperationStatusRunning, op.Status)

	reg.Clear(insight.KindCPS)
	_, ok = reg.Get(insight.KindCPS)
	assert.False(t, ok)
}

func TestRegistryUpdate(t *testing.T) {
	reg := NewRegistry()
	reg.Set(insight.KindSubtext, Operation{Key: insight.KindSubtext, Progress: 10})

	ok := reg.Update(insight.KindSubtext, func(op *Operation) {
		op.Progress = 25
	})
	require.True(t, ok)

	op, _ := reg.Get(insight.KindSubtext)
	assert.Equal(t, 25.0, op.Progress)

	assert.False(t, reg.Update(insight.KindRecon, func(op *Operation) {
		t.Fatal("update fn must not run for a missing key")
	}))
}

func TestRegistryConditionalWrites(t *testing.T) {
	reg := NewRegistry()
	reg.Set(insight.KindSubtext, Operation{Key: insight.KindSubtext, Status: OperationStatusRunning})

	rejected := reg.UpdateIf(insight.KindSubtext,
		func(op Operation) bool { return op.Status == OperationStatusComplete },
		func(op *Operation) { op.Progress = 50 },
	)
	assert.False(t, rejected)

	op, _ := reg.Get(insight.KindSubtext)
	assert.Equal(t, 0.0, op.Progress, "a rejected update leaves the entry untouched")

	applied := reg.UpdateIf(insight.KindSubtext,
		func(op Operation) bool { return op.Status == OperationStatusRunning },
		func(op *Operation) { op.Progress = 50 },
	)
	require.True(t, applied)

	op, _ = reg.Get(insight.KindSubtext)
	assert.Equal(t, 50.0, op.Progress)

	assert.False(t, reg.ClearIf(insight.KindSubtext,
		func(op Operation) bool { return op.Status == OperationStatusComplete }))
	_, ok := reg.Get(insight.KindSubtext)
	require.True(t, ok, "a rejected clear keeps the entry")

	require.True(t, reg.ClearIf(insight.KindSubtext,
		func(op Operation) bool { return op.Status == OperationStatusRunning }))
	_, ok = reg.Get(insight.KindSubtext)
	assert.False(t, ok)
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	reg := NewRegistry()
	reg.Set(insight.KindCPS, Operation{Key: insight.KindCPS, Progress: 5})
	reg.Set(insight.KindSubtext, Operation{Key: insight.KindSubtext, Progress: 7})

	snap := reg.Snapshot()
	require.Len(t, snap, 2)

	snap[insight.KindCPS] = Operation{Progress: 99}
	op, _ := reg.Get(insight.KindCPS)
	assert.Equal(t, 5.0, op.Progress)
}

func TestRegistrySubscribe(t *testing.T) {
	reg := NewRegistry()

	type notification struct {
		key insight.Kind
		op  *Operation
	}
	var got []notification
	unsubscribe := reg.Subscribe(func(key insight.Kind, op *Operation) {
		got = append(got, notification{key: key, op: op})
	})

	reg.Set(insight.KindRecon, Operation{Key: insight.KindRecon})
	reg.Clear(insight.KindRecon)

	require.Len(t, got, 2)
	assert.Equal(t, insight.KindRecon, got[0].key)
	require.NotNil(t, got[0].op)
	assert.Nil(t, got[1].op, "clear notifies with a nil operation")

	unsubscribe()
	reg.Set(insight.KindRecon, Operation{Key: insight.KindRecon})
	assert.Len(t, got, 2, "no notifications after unsubscribe")
}
