package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInbound_TestLed(t *testing.T) {
	cmd, ok, err := parseInbound([]byte(`{"type":"hardware_command","command":"test_led","color":"red"}`))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CmdTestLed, cmd.Kind)
	assert.Equal(t, "red", cmd.Color)
}

func TestParseInbound_TestLed_DefaultColor(t *testing.T) {
	cmd, ok, err := parseInbound([]byte(`{"type":"hardware_command","command":"test_led"}`))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "green", cmd.Color)
}

func TestParseInbound_TestBuzzer(t *testing.T) {
	cmd, ok, err := parseInbound([]byte(`{"type":"hardware_command","command":"test_buzzer","duration":1.5}`))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CmdTestBuzzer, cmd.Kind)
	assert.Equal(t, 1500*time.Millisecond, cmd.Duration)
}

func TestParseInbound_TestBuzzer_NoDuration(t *testing.T) {
	cmd, ok, err := parseInbound([]byte(`{"type":"hardware_command","command":"test_buzzer"}`))

	require.NoError(t, err)
	require.True(t, ok)
	// cero aquí significa "usar el default" más adelante
	assert.Equal(t, time.Duration(0), cmd.Duration)
}

func TestParseInbound_TestBuzzer_NegativeDuration(t *testing.T) {
	_, _, err := parseInbound([]byte(`{"type":"hardware_command","command":"test_buzzer","duration":-1}`))

	assert.ErrorIs(t, err, ErrMalformedCommand)
}

func TestParseInbound_StatusRequest(t *testing.T) {
	cmd, ok, err := parseInbound([]byte(`{"type":"hardware_command","command":"status_request"}`))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CmdStatusRequest, cmd.Kind)
}

func TestParseInbound_UnknownCommand(t *testing.T) {
	_, _, err := parseInbound([]byte(`{"type":"hardware_command","command":"self_destruct"}`))

	assert.ErrorIs(t, err, ErrMalformedCommand)
}

func TestParseInbound_NotACommand(t *testing.T) {
	cmd, ok, err := parseInbound([]byte(`{"type":"status_ack"}`))

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, cmd.Kind)
}

func TestParseInbound_BadJSON(t *testing.T) {
	_, _, err := parseInbound([]byte(`{nope`))

	assert.ErrorIs(t, err, ErrMalformedCommand)
}
