package adc

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the bridge firmware UART rate.
	DefaultBaudRate = 115200
	// DefaultResolution is the ADC resolution reported by the bridge, in bits.
	DefaultResolution = 10
	// DefaultReadTimeout bounds a single request/response exchange.
	DefaultReadTimeout = time.Second
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Opener opens the byte stream to the bridge. Tests replace it.
type Opener func(port string, baudRate int) (io.ReadWriteCloser, error)

// Serial is an ADC bridge MCU reached over a serial port. The bridge
// answers a single channel byte followed by a newline with the decimal
// ADC value terminated by a newline.
type Serial struct {
	port       string
	baudRate   int
	resolution int
	open       Opener

	conn      io.ReadWriteCloser
	reader    *bufio.Reader
	mu        sync.Mutex
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate and ADC resolution.
func New(port string, baudRate int, resolution int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if resolution == 0 {
		resolution = DefaultResolution
	}

	return &Serial{
		port:       port,
		baudRate:   baudRate,
		resolution: resolution,
		open:       openSerial,
	}
}

// WithOpener replaces the transport used by Connect.
func (d *Serial) WithOpener(open Opener) *Serial {
	d.open = open
	return d
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}

	return result, nil
}

func openSerial(port string, baudRate int) (io.ReadWriteCloser, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(DefaultReadTimeout); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Connect opens the serial port.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	conn, err := d.open(d.port, d.baudRate)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = conn
	d.reader = bufio.NewReader(conn)
	d.connected = true

	return nil
}

// Close closes the serial port.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	err := d.conn.Close()
	d.conn = nil
	d.reader = nil
	d.connected = false

	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// Read requests one conversion of ch from the bridge.
func (d *Serial) Read(ch Channel) (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return 0, ErrNotConnected
	}

	if _, err := d.conn.Write([]byte{byte(ch), '\n'}); err != nil {
		return 0, fmt.Errorf("failed to request %s sample: %w", ch, err)
	}

	line, err := d.reader.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("failed to read %s sample: %w", ch, err)
	}

	return parseLine(line, d.resolution)
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// parseLine parses a bridge response into a raw ADC value.
// Format: decimal value, optionally followed by CR.
// Example: 512
func parseLine(line string, resolution int) (uint16, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("empty response")
	}

	value, err := strconv.ParseUint(line, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid reading: %w", err)
	}

	maxValue := uint64(1)<<resolution - 1
	if value > maxValue {
		return 0, fmt.Errorf("reading out of range: %d (max %d)", value, maxValue)
	}

	return uint16(value), nil
}
