package link

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"

	"tollbooth-agent/internal/config"
	"tollbooth-agent/internal/observability"
	"tollbooth-agent/internal/utilities"
)

// reconnectBackoff es la espera fija entre intentos de conexión. Sin jitter
// ni exponencial: una caseta es un solo cliente, no una estampida.
const reconnectBackoff = 5 * time.Second

// wsConn es lo que el cliente usa de una conexión websocket. gorilla la
// cumple tal cual; los tests inyectan una falsa.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Client mantiene el canal de eventos con el backend: una conexión websocket
// persistente con reconexión automática, publicación fire-and-forget y
// despacho de comandos entrantes.
//
// Las publicaciones nunca se encolan: si el canal está caído se descartan en
// el momento. El loop de escaneo jamás espera al canal.
type Client struct {
	url      string
	boothID  string
	location config.Location
	hardware HardwareInfo
	handler  CommandHandler
	clk      clock.Clock
	logger   *slog.Logger

	// dial se reemplaza en tests para no abrir sockets reales.
	dial func(ctx context.Context) (wsConn, error)

	mu    sync.Mutex
	conn  wsConn
	state State
}

func NewClient(cfg config.Config, hw HardwareInfo, handler CommandHandler, clk clock.Clock, logger *slog.Logger) *Client {
	c := &Client{
		url:      cfg.WebsocketURL,
		boothID:  cfg.TollBoothID,
		location: cfg.Location,
		hardware: hw,
		handler:  handler,
		clk:      clk,
		logger:   logger.With("component", "link"),
	}
	c.dial = func(ctx context.Context) (wsConn, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return c
}

// State regresa el estado actual del canal.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

/* =========================================================
   Loop de conexión
   ========================================================= */

// Run mantiene el canal vivo hasta que ctx se cancele. Nunca termina por
// fallas: cada caída espera el backoff fijo y vuelve a marcar.
func (c *Client) Run(ctx context.Context) {
	for ctx.Err() == nil {
		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(StateDisconnected)
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("channel dial failed", "url", c.url, "error", err)
			observability.ChannelReconnects.Inc()
			if !c.wait(ctx, reconnectBackoff) {
				return
			}
			continue
		}

		c.setConn(conn)
		c.setState(StateConnected)
		c.logger.Info("channel connected", "url", c.url)

		// al entrar a Connected se publica la identidad de la caseta
		c.SendStatus()

		c.readLoop(ctx, conn)

		c.dropConn(conn)
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("channel closed, reconnecting")
		observability.ChannelReconnects.Inc()
		if !c.wait(ctx, reconnectBackoff) {
			return
		}
	}
}

// readLoop consume mensajes hasta que la conexión muera. La cancelación del
// ctx cierra la conexión por abajo para destrabar ReadMessage.
func (c *Client) readLoop(ctx context.Context, conn wsConn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("channel read error", "error", err)
			}
			return
		}
		c.handleInbound(raw)
	}
}

// wait duerme el backoff sobre el reloj inyectado. Regresa false si el ctx
// se canceló durante la espera.
func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	t := c.clk.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	old := c.state
	c.state = s
	c.mu.Unlock()
	if old != s {
		c.logger.Info("channel state", "from", old.String(), "to", s.String())
	}
}

func (c *Client) setConn(conn wsConn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// dropConn cierra y suelta la conexión sólo si sigue siendo la actual.
func (c *Client) dropConn(conn wsConn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		_ = conn.Close()
		c.conn = nil
	}
}

/* =========================================================
   Mensajes entrantes
   ========================================================= */

func (c *Client) handleInbound(raw []byte) {
	cmd, ok, err := parseInbound(raw)
	if err != nil {
		c.logger.Warn("malformed channel message", "error", err)
		observability.MalformedInbound.Inc()
		utilities.CreateLog("channel_malformed", string(raw))
		return
	}
	if !ok {
		// status acks y demás mensajes informativos del backend
		c.logger.Debug("ignoring channel message")
		return
	}
	c.dispatch(cmd)
}

// dispatch ejecuta un comando validado. Corre en el goroutine de lectura:
// un test_buzzer largo retrasa el siguiente comando, no el escaneo.
func (c *Client) dispatch(cmd Command) {
	observability.CommandsTotal.WithLabelValues(string(cmd.Kind)).Inc()
	c.logger.Info("hardware command received", "command", string(cmd.Kind))
	switch cmd.Kind {
	case CmdTestLed:
		c.handler.TestLed(cmd.Color)
	case CmdTestBuzzer:
		c.handler.TestBuzzer(cmd.Duration)
	case CmdStatusRequest:
		c.SendStatus()
	}
}

/* =========================================================
   Mensajes salientes
   ========================================================= */

// SendStatus publica el hardware_status de la caseta.
func (c *Client) SendStatus() {
	c.send(statusPayload{
		Type:        "hardware_status",
		TollBoothID: c.boothID,
		Status:      "active",
		Location:    c.location,
		Timestamp:   unixSeconds(c.clk.Now()),
		Hardware:    c.hardware,
	})
}

// SendVehicleDetected notifica el paso de un vehículo registrado.
func (c *Client) SendVehicleDetected(vehicleID string, ts time.Time) {
	c.send(vehicleDetectedPayload{
		Type:       "vehicle_detected",
		VehicleID:  vehicleID,
		Registered: true,
		Timestamp:  unixSeconds(ts),
	})
}

// SendUnregisteredVehicle notifica el paso de un vehículo no registrado.
func (c *Client) SendUnregisteredVehicle(vehicleID string, ts time.Time) {
	c.send(unregisteredVehiclePayload{
		Type:      "unregistered_vehicle",
		VehicleID: vehicleID,
		Timestamp: unixSeconds(ts),
	})
}

// send publica si el canal está conectado; si no, descarta sin encolar y sin
// propagar error. Un fallo de escritura tumba la conexión y deja que el loop
// reconecte.
func (c *Client) send(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.conn == nil {
		observability.NotificationsDropped.Inc()
		c.logger.Debug("channel down, notification dropped")
		return
	}
	if err := c.conn.WriteJSON(v); err != nil {
		c.logger.Warn("channel send failed", "error", err)
		_ = c.conn.Close()
	}
}
