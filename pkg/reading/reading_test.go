package reading

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_ExactPayload(t *testing.T) {
	buf := make([]byte, BufferSize)

	got, err := New("Soil_Sensor", 500.0, 72.3).Encode(buf)
	require.NoError(t, err)
	assert.Equal(t, `{"device":"Soil_Sensor","humidity":500.0,"BatteryPct":72.3}`, string(got))
}

func TestEncode_Values(t *testing.T) {
	tests := []struct {
		name     string
		humidity float32
		battery  float32
		want     string
	}{
		{"whole numbers", 505, 50, `{"device":"Soil_Sensor","humidity":505.0,"BatteryPct":50.0}`},
		{"fractions", 505.25, 50.11, `{"device":"Soil_Sensor","humidity":505.25,"BatteryPct":50.11}`},
		{"negative battery", 0, -88.5, `{"device":"Soil_Sensor","humidity":0.0,"BatteryPct":-88.5}`},
		{"above full", 949.99, 118.9, `{"device":"Soil_Sensor","humidity":949.99,"BatteryPct":118.9}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New("Soil_Sensor", tt.humidity, tt.battery).Encode(make([]byte, BufferSize))
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			assert.True(t, json.Valid(got))
		})
	}
}

func TestEncode_KeyOrder(t *testing.T) {
	got, err := New("Soil_Sensor", 1, 2).Encode(make([]byte, BufferSize))
	require.NoError(t, err)

	s := string(got)
	device := strings.Index(s, `"device"`)
	humidity := strings.Index(s, `"humidity"`)
	battery := strings.Index(s, `"BatteryPct"`)
	assert.True(t, device < humidity && humidity < battery, s)
}

func TestEncode_BufferTooSmall(t *testing.T) {
	_, err := New("Soil_Sensor", 500, 72.3).Encode(make([]byte, 16))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	long := strings.Repeat("x", BufferSize)
	_, err = New(long, 500, 72.3).Encode(make([]byte, BufferSize))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestEncode_NotFinite(t *testing.T) {
	buf := make([]byte, BufferSize)

	_, err := New("Soil_Sensor", math32.NaN(), 50).Encode(buf)
	assert.ErrorIs(t, err, ErrNotFinite)

	_, err = New("Soil_Sensor", 500, math32.Inf(1)).Encode(buf)
	assert.ErrorIs(t, err, ErrNotFinite)
}

func TestPretty(t *testing.T) {
	got, err := New("Soil_Sensor", 505, 50.11).Pretty()
	require.NoError(t, err)

	want := "{\n  \"device\": \"Soil_Sensor\",\n  \"humidity\": 505.0,\n  \"BatteryPct\": 50.11\n}"
	assert.Equal(t, want, got)
}

func TestValue_RoundTrip(t *testing.T) {
	got, err := New("Soil_Sensor", 505.0, 50.11).Encode(make([]byte, BufferSize))
	require.NoError(t, err)

	var decoded struct {
		Device     string  `json:"device"`
		Humidity   float32 `json:"humidity"`
		BatteryPct float32 `json:"BatteryPct"`
	}
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, "Soil_Sensor", decoded.Device)
	assert.Equal(t, float32(505), decoded.Humidity)
	assert.Equal(t, float32(50.11), decoded.BatteryPct)
}
