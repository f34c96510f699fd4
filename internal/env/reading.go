package env

// Reading is the latest barometer snapshot (BMP180).
type Reading struct {
	Pressure    int64   `json:"pressure_pa"`   // Pa
	Temperature float64 `json:"temperature_c"` // °C
	Altitude    float64 `json:"altitude_m"`    // m, relative to the reference pressure
}
