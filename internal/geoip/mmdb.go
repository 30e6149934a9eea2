package geoip

import (
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/maxminddb-golang"
)

// GeoReader abstracts a local GeoIP database lookup. Lookup returns an
// uppercase ISO-3166 country code, or "" when the address isn't present.
type GeoReader interface {
	Lookup(ip string) string
	Close() error
}

// OpenFunc opens a GeoIP database file and returns a GeoReader.
type OpenFunc func(path string) (GeoReader, error)

// OpenMMDB opens a MaxMind country/city database at path.
func OpenMMDB(path string) (GeoReader, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open mmdb %s: %w", path, err)
	}
	return &mmdbReader{reader: reader}, nil
}

type mmdbRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	RegisteredCountry struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"registered_country"`
}

type mmdbReader struct {
	reader *maxminddb.Reader
}

func (m *mmdbReader) Lookup(ipStr string) string {
	if m == nil || m.reader == nil {
		return ""
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return ""
	}
	var record mmdbRecord
	if err := m.reader.Lookup(ip, &record); err != nil {
		return ""
	}
	if record.Country.ISOCode != "" {
		return strings.ToUpper(record.Country.ISOCode)
	}
	if record.RegisteredCountry.ISOCode != "" {
		return strings.ToUpper(record.RegisteredCountry.ISOCode)
	}
	return ""
}

func (m *mmdbReader) Close() error {
	if m == nil || m.reader == nil {
		return nil
	}
	return m.reader.Close()
}

// noOpReader always misses; useful in tests and as a safe zero value.
type noOpReader struct{}

func (noOpReader) Lookup(string) string { return "" }
func (noOpReader) Close() error         { return nil }

// NoOpOpen is an OpenFunc that never resolves anything.
func NoOpOpen(string) (GeoReader, error) { return noOpReader{}, nil }

// countryNameFor maps a small set of common ISO codes to display names.
// Codes outside this table come back with an empty name, which is fine:
// the output's countryName field is optional.
var countryNames = map[string]string{
	"HK": "Hong Kong",
	"SG": "Singapore",
	"US": "United States",
	"JP": "Japan",
	"TW": "Taiwan",
	"GB": "United Kingdom",
	"DE": "Germany",
	"FR": "France",
	"CA": "Canada",
	"AU": "Australia",
	"KR": "South Korea",
	"NL": "Netherlands",
	"CN": "China",
	"IN": "India",
	"RU": "Russia",
	"BR": "Brazil",
}

func countryNameFor(code string) string {
	return countryNames[strings.ToUpper(code)]
}
