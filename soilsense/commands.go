package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/itohio/soilsense/pkg/adc"
	"github.com/itohio/soilsense/pkg/broker"
	"github.com/itohio/soilsense/pkg/clock"
	"github.com/itohio/soilsense/pkg/config"
	"github.com/itohio/soilsense/pkg/power"
	"github.com/itohio/soilsense/pkg/station"
	"github.com/itohio/soilsense/pkg/wifi"
)

// listSerialPorts enumerates candidate ADC bridge ports.
var listSerialPorts = adc.Ports

// node bundles a station with the resources it must release.
type node struct {
	station *station.Station
	device  adc.Device
	client  broker.Client
}

func (n *node) Close() {
	n.client.Disconnect()
	if err := n.device.Close(); err != nil {
		logger.Warn("failed to close ADC bridge", zap.Error(err))
	}
}

// newDevice returns the mocked front end or the serial ADC bridge.
func newDevice(cfg *config.Config, mock bool) adc.Device {
	if mock {
		return adc.NewMock(&cfg.Mock)
	}
	return adc.New(cfg.ADC.Port, cfg.ADC.BaudRate, cfg.ADC.ResolutionBits)
}

// newLink returns the link that gates network bring-up. A mocked node and a
// host without a named interface are treated as always connected.
func newLink(cfg *config.Config, mock bool) wifi.Link {
	if mock || cfg.WiFi.Interface == "" {
		return wifi.StaticLink{}
	}
	return wifi.NewInterfaceLink(cfg.WiFi.Interface)
}

func buildNode(ctx context.Context, halt bool) (*node, error) {
	device := newDevice(cfg, useMock)
	if err := device.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to ADC bridge: %w", err)
	}

	chip := power.NewHostChip(ctx, clock.Sleep, halt)
	ctrl, err := power.New(cfg.Power.Variant, chip)
	if err != nil {
		device.Close()
		return nil, err
	}

	client := broker.NewPaho(cfg.Broker.ConnectTimeout, logger.Logger)
	st := station.New(cfg, device, newLink(cfg, useMock), client, ctrl, logger.Logger,
		station.WithFlush(logger.Flush))

	return &node{station: st, device: device, client: client}, nil
}

func runLoop(cmd *cobra.Command, args []string) error {
	n, err := buildNode(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer n.Close()

	logger.Debug("starting node",
		zap.String("client_id", n.station.ClientID()),
		zap.String("variant", cfg.Power.Variant),
		zap.Duration("sleep", cfg.Power.Sleep))
	return n.station.Run(cmd.Context())
}

func runOnce(cmd *cobra.Command, args []string) error {
	n, err := buildNode(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer n.Close()

	err = n.station.RunOnce(cmd.Context(), !noSleep)
	if errors.Is(err, power.ErrHalted) {
		return nil
	}
	return err
}

func configInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}

func listPorts(cmd *cobra.Command, args []string) error {
	ports, err := listSerialPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(cmd.OutOrStdout(), p.Name)
	}
	return nil
}
