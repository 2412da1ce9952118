package pagerbits

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGPIOLine is a test double for gpioOutputLine that records calls
// without requiring GPIO hardware or the gpio-sim kernel module.
type mockGPIOLine struct {
	value  int
	closed bool
}

func (m *mockGPIOLine) SetValue(v int) error {
	m.value = v
	return nil
}

func (m *mockGPIOLine) Close() error {
	m.closed = true
	return nil
}

func TestGPIOIndicator(t *testing.T) {
	var mock = new(mockGPIOLine)
	var g = &GPIOIndicator{line: mock}

	require.NoError(t, g.SetLocked(true))
	assert.Equal(t, 1, mock.value, "line should be high when locked")

	require.NoError(t, g.SetLocked(false))
	assert.Equal(t, 0, mock.value, "line should be low when not locked")

	require.NoError(t, g.Close())
	assert.True(t, mock.closed)
}

// fakeIndicator remembers every setting.
type fakeIndicator struct {
	mu       sync.Mutex
	settings []bool
}

func (f *fakeIndicator) SetLocked(locked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.settings = append(f.settings, locked)

	return nil
}

func (f *fakeIndicator) Close() error {
	return nil
}

func TestWatchLock(t *testing.T) {
	var d, _ = newTestDecoder(t, DefaultConfig())
	var ind = new(fakeIndicator)

	var stop = WatchLock(d, ind)

	d.Process(testTransmission(NewGenerator(testSampleRate, 1200)))
	d.Reset()

	stop()

	ind.mu.Lock()
	defer ind.mu.Unlock()

	// Searching to Sync, Sync to Locked, Locked to Searching, then off on the way out.
	assert.Equal(t, []bool{false, true, false, false}, ind.settings)
}
