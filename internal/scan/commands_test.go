package scan

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tollbooth-agent/internal/feedback"
)

func newCommandsFixture() (*Commands, *fakeLine, *fakeLine, *clock.Mock) {
	yellow, buzzer := &fakeLine{}, &fakeLine{}
	mock := clock.NewMock()
	fb := feedback.NewController(&fakeLine{}, &fakeLine{}, yellow, buzzer, mock, testLogger())
	return NewCommands(fb, testLogger()), yellow, buzzer, mock
}

func TestCommands_TestLed(t *testing.T) {
	h, yellow, _, mock := newCommandsFixture()

	h.TestLed("yellow")
	assert.True(t, yellow.On())

	mock.Add(feedback.HoldTest)
	assert.False(t, yellow.On())
}

func TestCommands_TestLed_UnknownColor(t *testing.T) {
	h, yellow, _, _ := newCommandsFixture()

	h.TestLed("blue")
	assert.False(t, yellow.On())
}

func TestCommands_TestBuzzer_DefaultDuration(t *testing.T) {
	h, _, buzzer, mock := newCommandsFixture()

	done := make(chan struct{})
	go func() {
		h.TestBuzzer(0)
		close(done)
	}()

	require.Eventually(t, buzzer.On, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	mock.Add(feedback.DefaultTestBuzz)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("buzzer test never finished")
	}
	assert.False(t, buzzer.On())
}

func TestCommands_TestBuzzer_ExplicitDuration(t *testing.T) {
	h, _, buzzer, mock := newCommandsFixture()

	done := make(chan struct{})
	go func() {
		h.TestBuzzer(2 * time.Second)
		close(done)
	}()

	require.Eventually(t, buzzer.On, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	// con el default ya avanzado el pulso sigue; dura los 2s pedidos
	mock.Add(feedback.DefaultTestBuzz)
	assert.True(t, buzzer.On())
	mock.Add(2*time.Second - feedback.DefaultTestBuzz)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("buzzer test never finished")
	}
	assert.False(t, buzzer.On())
}
