package link

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tollbooth-agent/internal/config"
	"tollbooth-agent/internal/observability"
)

// fakeConn simula una conexión websocket: los mensajes entrantes se empujan
// por un canal y los salientes quedan registrados.
type fakeConn struct {
	mu      sync.Mutex
	inbound chan []byte
	sent    []any
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 8)}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	b, ok := <-f.inbound
	if !ok {
		return 0, nil, errors.New("connection closed")
	}
	return websocket.TextMessage, b, nil
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.inbound)
	}
	return nil
}

func (f *fakeConn) push(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.inbound <- []byte(raw)
	}
}

func (f *fakeConn) Sent() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeHandler struct {
	mu     sync.Mutex
	leds   []string
	buzzes []time.Duration
}

func (h *fakeHandler) TestLed(color string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leds = append(h.leds, color)
}

func (h *fakeHandler) TestBuzzer(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buzzes = append(h.buzzes, d)
}

func (h *fakeHandler) Leds() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.leds...)
}

func (h *fakeHandler) Buzzes() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.buzzes...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig() config.Config {
	return config.Config{
		WebsocketURL: "ws://backend.test",
		TollBoothID:  "TB001",
		Location:     config.Location{Lat: 12.9716, Lng: 77.5946},
	}
}

func newTestClient(handler CommandHandler) (*Client, *clock.Mock) {
	mock := clock.NewMock()
	c := NewClient(testConfig(), HardwareInfo{RFID: true, Camera: true, GPIO: true}, handler, mock, testLogger())
	return c, mock
}

// arranca Run contra una conexión fija y espera el hardware_status inicial.
func startConnected(t *testing.T, c *Client, conn *fakeConn) (cancel func(), done chan struct{}) {
	t.Helper()
	c.dial = func(context.Context) (wsConn, error) { return conn, nil }

	ctx, cancelCtx := context.WithCancel(context.Background())
	done = make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(conn.Sent()) >= 1 }, time.Second, time.Millisecond)
	return cancelCtx, done
}

func waitStopped(t *testing.T, cancel func(), done chan struct{}) {
	t.Helper()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestClient_Run_SendsStatusOnConnect(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestClient(&fakeHandler{})
	cancel, done := startConnected(t, c, conn)

	assert.Equal(t, StateConnected, c.State())

	status, ok := conn.Sent()[0].(statusPayload)
	require.True(t, ok, "first message must be the hardware status")
	assert.Equal(t, "hardware_status", status.Type)
	assert.Equal(t, "TB001", status.TollBoothID)
	assert.Equal(t, "active", status.Status)
	assert.Equal(t, 12.9716, status.Location.Lat)
	assert.True(t, status.Hardware.RFID)
	assert.True(t, status.Hardware.Camera)
	assert.True(t, status.Hardware.GPIO)

	waitStopped(t, cancel, done)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClient_Run_RetriesAfterFixedBackoff(t *testing.T) {
	c, mock := newTestClient(&fakeHandler{})

	var mu sync.Mutex
	dials := 0
	conn := newFakeConn()
	c.dial = func(context.Context) (wsConn, error) {
		mu.Lock()
		defer mu.Unlock()
		dials++
		if dials == 1 {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return dials == 1
	}, time.Second, time.Millisecond)

	// sin avanzar el reloj no hay reintento
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, dials)
	mu.Unlock()
	assert.Equal(t, StateDisconnected, c.State())

	mock.Add(reconnectBackoff)
	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, time.Millisecond)
	mu.Lock()
	assert.Equal(t, 2, dials)
	mu.Unlock()

	waitStopped(t, cancel, done)
}

func TestClient_Run_ReconnectsAfterDrop(t *testing.T) {
	c, mock := newTestClient(&fakeHandler{})

	var mu sync.Mutex
	var conns []*fakeConn
	c.dial = func(context.Context) (wsConn, error) {
		mu.Lock()
		defer mu.Unlock()
		conn := newFakeConn()
		conns = append(conns, conn)
		return conn, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, time.Millisecond)
	mu.Lock()
	first := conns[0]
	mu.Unlock()

	// el backend tira la conexión
	_ = first.Close()
	require.Eventually(t, func() bool { return c.State() == StateDisconnected }, time.Second, time.Millisecond)

	// la reconexión espera el backoff completo
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Len(t, conns, 1)
	mu.Unlock()

	mock.Add(reconnectBackoff)
	require.Eventually(t, func() bool { return c.State() == StateConnected }, time.Second, time.Millisecond)

	mu.Lock()
	require.Len(t, conns, 2)
	second := conns[1]
	mu.Unlock()

	// la conexión nueva recibe su propio hardware_status
	require.Eventually(t, func() bool { return len(second.Sent()) == 1 }, time.Second, time.Millisecond)
	_, isStatus := second.Sent()[0].(statusPayload)
	assert.True(t, isStatus)

	waitStopped(t, cancel, done)
}

func TestClient_Dispatch_Commands(t *testing.T) {
	conn := newFakeConn()
	handler := &fakeHandler{}
	c, _ := newTestClient(handler)
	cancel, done := startConnected(t, c, conn)
	defer waitStopped(t, cancel, done)

	conn.push(`{"type":"hardware_command","command":"test_led","color":"yellow"}`)
	require.Eventually(t, func() bool { return len(handler.Leds()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "yellow", handler.Leds()[0])

	conn.push(`{"type":"hardware_command","command":"test_buzzer","duration":0.5}`)
	require.Eventually(t, func() bool { return len(handler.Buzzes()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, handler.Buzzes()[0])

	// status_request lo contesta el propio canal
	conn.push(`{"type":"hardware_command","command":"status_request"}`)
	require.Eventually(t, func() bool { return len(conn.Sent()) == 2 }, time.Second, time.Millisecond)
	status, ok := conn.Sent()[1].(statusPayload)
	require.True(t, ok)
	assert.Equal(t, "hardware_status", status.Type)
}

func TestClient_InboundMalformed_LoopSurvives(t *testing.T) {
	t.Chdir(t.TempDir()) // el registro de mensajes ilegibles escribe en logs/

	conn := newFakeConn()
	handler := &fakeHandler{}
	c, _ := newTestClient(handler)
	cancel, done := startConnected(t, c, conn)
	defer waitStopped(t, cancel, done)

	conn.push(`{nope`)
	conn.push(`{"type":"hardware_command","command":"warp_drive"}`)
	conn.push(`{"type":"status_ack"}`)
	conn.push(`{"type":"hardware_command","command":"test_led","color":"red"}`)

	require.Eventually(t, func() bool { return len(handler.Leds()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "red", handler.Leds()[0])
	assert.Equal(t, StateConnected, c.State())
}

func TestClient_Send_DroppedWhenDisconnected(t *testing.T) {
	c, _ := newTestClient(&fakeHandler{})

	before := testutil.ToFloat64(observability.NotificationsDropped)
	c.SendVehicleDetected("VEH_001", time.Now())
	c.SendUnregisteredVehicle("VEH_002", time.Now())
	after := testutil.ToFloat64(observability.NotificationsDropped)

	assert.Equal(t, 2.0, after-before)
}

func TestClient_Send_NotBufferedAcrossConnect(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestClient(&fakeHandler{})

	// con el canal caído la notificación se descarta en el momento
	c.SendUnregisteredVehicle("VEH_009", time.Now())

	cancel, done := startConnected(t, c, conn)
	defer waitStopped(t, cancel, done)

	time.Sleep(20 * time.Millisecond)
	sent := conn.Sent()
	require.Len(t, sent, 1, "solo el status inicial; nada descartado revive")
	_, isStatus := sent[0].(statusPayload)
	assert.True(t, isStatus)
}

func TestClient_SendNotifications_Payloads(t *testing.T) {
	conn := newFakeConn()
	c, _ := newTestClient(&fakeHandler{})
	cancel, done := startConnected(t, c, conn)
	defer waitStopped(t, cancel, done)

	ts := time.Unix(1700000000, 250_000_000)
	c.SendVehicleDetected("VEH_001", ts)
	c.SendUnregisteredVehicle("VEH_002", ts)

	sent := conn.Sent()
	require.Len(t, sent, 3)

	det, ok := sent[1].(vehicleDetectedPayload)
	require.True(t, ok)
	assert.Equal(t, "vehicle_detected", det.Type)
	assert.Equal(t, "VEH_001", det.VehicleID)
	assert.True(t, det.Registered)
	assert.InDelta(t, 1700000000.25, det.Timestamp, 0.001)

	unreg, ok := sent[2].(unregisteredVehiclePayload)
	require.True(t, ok)
	assert.Equal(t, "unregistered_vehicle", unreg.Type)
	assert.Equal(t, "VEH_002", unreg.VehicleID)
}
