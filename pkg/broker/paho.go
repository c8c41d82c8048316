package broker

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultConnectTimeout bounds a single handshake.
const DefaultConnectTimeout = 15 * time.Second

// Paho implements Client with the Eclipse Paho MQTT library. Automatic
// reconnection is disabled: a lost connection is noticed by Connected and
// re-established through Reconnect.
type Paho struct {
	timeout time.Duration
	logger  *zap.Logger
	factory func(*mqtt.ClientOptions) mqtt.Client

	mu     sync.Mutex
	server string
	client mqtt.Client
	state  int
}

// NewPaho creates an unconnected client.
func NewPaho(connectTimeout time.Duration, logger *zap.Logger) *Paho {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &Paho{
		timeout: connectTimeout,
		logger:  logger,
		factory: mqtt.NewClient,
		state:   StateDisconnected,
	}
}

// SetServer sets the broker address used by the next Connect.
func (p *Paho) SetServer(host string, port uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.server = fmt.Sprintf("tcp://%s:%d", host, port)
}

// Connect performs one handshake.
func (p *Paho) Connect(clientID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.server == "" {
		p.state = StateConnectFailed
		return false
	}

	opts := mqtt.NewClientOptions().
		AddBroker(p.server).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(p.timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			p.logger.Warn("mqtt connection lost", zap.Error(err))
		})

	client := p.factory(opts)
	token := client.Connect()
	if !token.WaitTimeout(p.timeout) {
		p.state = StateConnectionTimeout
		return false
	}
	if err := token.Error(); err != nil {
		p.state = connackState(token)
		p.logger.Debug("mqtt handshake failed", zap.Error(err))
		return false
	}

	p.client = client
	p.state = StateConnected
	return true
}

// connackState maps a failed connect token to a state code.
func connackState(token mqtt.Token) int {
	if ct, ok := token.(*mqtt.ConnectToken); ok {
		if rc := ct.ReturnCode(); rc >= StateBadProtocol && rc <= StateUnauthorized {
			return int(rc)
		}
	}
	return StateConnectFailed
}

// Connected reports whether the connection is currently open.
func (p *Paho) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return false
	}
	if !p.client.IsConnectionOpen() {
		if p.state == StateConnected {
			p.state = StateConnectionLost
		}
		return false
	}
	return true
}

// State returns the last state code.
func (p *Paho) State() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Publish sends payload with QoS 0 without waiting for delivery. It reports
// whether the message was handed to an open connection.
func (p *Paho) Publish(topic string, payload []byte) bool {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()

	if client == nil || !client.IsConnectionOpen() {
		return false
	}
	token := client.Publish(topic, 0, false, payload)
	select {
	case <-token.Done():
		return token.Error() == nil
	default:
		return true
	}
}

// Disconnect closes the connection, allowing 250ms for in-flight work.
func (p *Paho) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		p.client.Disconnect(250)
		p.client = nil
	}
	p.state = StateDisconnected
}
