//go:build tinygo

package main

import "machine"

const (
	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // Native ADC resolution in bits (0-4095)
	OUTPUT_SHIFT     = 2    // Values are reported with 10-bit resolution (0-1023)

	// Analog inputs
	PIN_MOISTURE_ADC = machine.A0  // Capacitive probe output
	PIN_BATTERY_ADC  = machine.A10 // Battery divider midpoint

	// Serial configuration
	// Request "m\n" or "b\n", response "1023\n": 5 bytes each way.
	UART_BAUD_RATE = 115200
)
