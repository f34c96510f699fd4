package gps

// Fix is the station position from the most recent NMEA sentences.
type Fix struct {
	Time       string  `json:"time"`       // e.g. "12:34:56.0000"
	Date       string  `json:"date"`       // from RMC
	Latitude   float64 `json:"lat"`        // decimal degrees
	Longitude  float64 `json:"lon"`        // decimal degrees
	Altitude   float64 `json:"alt_m"`      // GGA altitude above mean sea level
	Satellites int64   `json:"satellites"` // GGA satellites in use
	Quality    string  `json:"quality"`    // GGA fix quality ("0" = invalid)
	Validity   string  `json:"validity"`   // RMC "A" (valid) / "V" (void)
}
