//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

const (
	CHANNEL_MOISTURE = 'm'
	CHANNEL_BATTERY  = 'b'
)

var (
	adcMoisture machine.ADC
	adcBattery  machine.ADC
	uart        = machine.UART0

	// Channel requested on the current line, 0 when none or invalid
	pending byte
	invalid bool
)

func main() {
	PIN_MOISTURE_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_BATTERY_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})

	adcMoisture = machine.ADC{Pin: PIN_MOISTURE_ADC}
	adcBattery = machine.ADC{Pin: PIN_BATTERY_ADC}

	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	adcMoisture.Configure(adcConfig)
	adcBattery.Configure(adcConfig)

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	for {
		processSerial()
		time.Sleep(100 * time.Microsecond)
	}
}

// processSerial answers one conversion per complete request line.
func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		switch data {
		case '\n', '\r':
			if pending != 0 && !invalid {
				respond(pending)
			}
			pending = 0
			invalid = false
		case ' ', '\t':
		case CHANNEL_MOISTURE, CHANNEL_BATTERY:
			if pending != 0 {
				invalid = true
			}
			pending = data
		default:
			invalid = true
		}
	}
}

func respond(channel byte) {
	var adc *machine.ADC
	switch channel {
	case CHANNEL_MOISTURE:
		adc = &adcMoisture
	case CHANNEL_BATTERY:
		adc = &adcBattery
	default:
		return
	}

	// machine.ADC.Get is left-aligned to 16 bits regardless of resolution.
	value := adc.Get() >> (16 - ADC_RESOLUTION + OUTPUT_SHIFT)
	print(value)
	print("\n")
}
