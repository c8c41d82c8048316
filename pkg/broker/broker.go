// Package broker connects the node to an MQTT broker and publishes readings.
//
// Client mirrors a minimal publish-only MQTT client: a single handshake per
// Connect call, a numeric State for diagnostics and fire-and-forget Publish.
// Retrying the handshake is the caller's job, see Reconnect.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/itohio/soilsense/pkg/clock"
)

// Client state codes. Positive values are CONNACK refusal codes.
const (
	StateConnectionTimeout = -4
	StateConnectionLost    = -3
	StateConnectFailed     = -2
	StateDisconnected      = -1
	StateConnected         = 0
	StateBadProtocol       = 1
	StateBadClientID       = 2
	StateUnavailable       = 3
	StateBadCredentials    = 4
	StateUnauthorized      = 5
)

// Client is a publish-only MQTT client.
type Client interface {
	SetServer(host string, port uint16)
	Connect(clientID string) bool
	Connected() bool
	State() int
	Publish(topic string, payload []byte) bool
	Disconnect()
}

// Ensure Paho implements Client.
var _ Client = (*Paho)(nil)

// StateText describes a state code for logs.
func StateText(state int) string {
	switch state {
	case StateConnectionTimeout:
		return "connection timeout"
	case StateConnectionLost:
		return "connection lost"
	case StateConnectFailed:
		return "connect failed"
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateBadProtocol:
		return "bad protocol"
	case StateBadClientID:
		return "bad client id"
	case StateUnavailable:
		return "server unavailable"
	case StateBadCredentials:
		return "bad credentials"
	case StateUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// ClientID returns base, optionally made unique with a random suffix so
// several nodes running the same build do not evict each other.
func ClientID(base string, uniqueSuffix bool) string {
	if !uniqueSuffix {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}

// Reconnect performs handshakes with clientID until one succeeds. After each
// failure it logs the client state and waits retryDelay. There is no attempt
// limit and no backoff growth; only ctx ends the loop. It returns the number
// of handshake attempts made.
func Reconnect(ctx context.Context, client Client, clientID string, retryDelay time.Duration, sleep clock.Sleeper, logger *zap.Logger) (int, error) {
	if sleep == nil {
		sleep = clock.Sleep
	}

	attempts := 0
	for !client.Connected() {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		logger.Info("Attempting MQTT connection...", zap.String("client_id", clientID))
		attempts++
		if client.Connect(clientID) {
			logger.Info("connected")
			break
		}

		state := client.State()
		logger.Warn(fmt.Sprintf("failed, rc=%d try again in %g seconds", state, retryDelay.Seconds()),
			zap.Int("rc", state),
			zap.String("reason", StateText(state)),
			zap.Duration("retry_in", retryDelay))
		if err := sleep(ctx, retryDelay); err != nil {
			return attempts, err
		}
	}

	return attempts, nil
}
