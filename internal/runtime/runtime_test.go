package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-sh/rune/internal/engine"
)

type fakeDelegate struct {
	mu      sync.Mutex
	calling bool
	blockCh chan struct{}
	callErr error
}

func (f *fakeDelegate) Call(ctx context.Context) error {
	f.mu.Lock()
	f.calling = true
	f.mu.Unlock()
	if f.blockCh != nil {
		<-f.blockCh
	}
	f.mu.Lock()
	f.calling = false
	f.mu.Unlock()
	return f.callErr
}

func (f *fakeDelegate) Capabilities() map[uint32]engine.CapabilityMeta { return nil }
func (f *fakeDelegate) Outputs() map[uint32]engine.OutputMeta         { return nil }
func (f *fakeDelegate) Resources() []engine.ResourceMeta              { return nil }
func (f *fakeDelegate) Inputs() map[uint32][]byte                     { return nil }
func (f *fakeDelegate) Close(ctx context.Context) error               { return nil }

func TestRuntime_CallSucceeds(t *testing.T) {
	r := &Runtime{delegate: &fakeDelegate{}}
	require.NoError(t, r.Call(context.Background()))
}

func TestRuntime_CallWrapsTrap(t *testing.T) {
	r := &Runtime{delegate: &fakeDelegate{callErr: errors.New("out of bounds memory access")}}
	err := r.Call(context.Background())
	require.Error(t, err)
	var trap *TrapError
	require.True(t, errors.As(err, &trap))
	assert.Equal(t, "call", trap.Phase)
}

func TestRuntime_CallRejectsConcurrent(t *testing.T) {
	blockCh := make(chan struct{})
	delegate := &fakeDelegate{blockCh: blockCh}
	r := &Runtime{delegate: delegate}

	done := make(chan error, 1)
	go func() { done <- r.Call(context.Background()) }()

	for {
		delegate.mu.Lock()
		calling := delegate.calling
		delegate.mu.Unlock()
		if calling {
			break
		}
	}

	assert.ErrorIs(t, r.Call(context.Background()), ErrBusy)
	close(blockCh)
	require.NoError(t, <-done)
}
