package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachine_ForwardPath(t *testing.T) {
	t.Parallel()
	type step struct{ from, to Phase }
	var entered []step
	m := NewMachine(func(from, to Phase) { entered = append(entered, step{from, to}) })

	require.NoError(t, m.Advance(PhaseScanning))
	require.NoError(t, m.Advance(PhaseProcessing))
	require.NoError(t, m.Advance(PhaseComplete))

	assert.Equal(t, PhaseComplete, m.Phase())
	assert.Equal(t, []Phase{PhaseInit, PhaseScanning, PhaseProcessing, PhaseComplete}, m.History())
	assert.Equal(t, []step{
		{PhaseInit, PhaseScanning},
		{PhaseScanning, PhaseProcessing},
		{PhaseProcessing, PhaseComplete},
	}, entered)
}

func TestMachine_RejectsSkipAndReverse(t *testing.T) {
	t.Parallel()
	m := NewMachine(nil)

	err := m.Advance(PhaseProcessing)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, PhaseInit, m.Phase())

	require.NoError(t, m.Advance(PhaseScanning))
	require.ErrorIs(t, m.Advance(PhaseInit), ErrInvalidTransition)
	require.ErrorIs(t, m.Advance(PhaseScanning), ErrInvalidTransition)
	assert.Equal(t, PhaseScanning, m.Phase())
}

func TestMachine_CompleteIsTerminal(t *testing.T) {
	t.Parallel()
	m := NewMachine(nil)
	for _, p := range []Phase{PhaseScanning, PhaseProcessing, PhaseComplete} {
		require.NoError(t, m.Advance(p))
	}
	assert.True(t, m.Phase().Terminal())
	require.ErrorIs(t, m.Advance(Phase(4)), ErrInvalidTransition)
	assert.Len(t, m.History(), 4)
}

func TestMachine_ZeroValue(t *testing.T) {
	t.Parallel()
	var m Machine
	assert.Equal(t, PhaseInit, m.Phase())
	require.NoError(t, m.Advance(PhaseScanning))
	assert.Equal(t, []Phase{PhaseInit, PhaseScanning}, m.History())
}

func TestPhase_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "processing", PhaseProcessing.String())
	assert.Equal(t, "phase(7)", Phase(7).String())
}
