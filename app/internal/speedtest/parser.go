package speedtest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrParse is returned when the command output holds no usable measurement.
var ErrParse = errors.New("unparseable speedtest output")

// Measurement is a parsed bandwidth probe result.
type Measurement struct {
	Server       string
	LatencyMs    float64
	DownloadMbps float64
	UploadMbps   float64
}

// speedtest-cli --csv columns
const (
	colServerID = iota
	colSponsor
	colServerName
	colTimestamp
	colDistance
	colPing
	colDownload
	colUpload
	minColumns
)

// Parse reads speedtest-cli CSV output. Throughput is reported in bits per
// second and converted to Mbps. The header row, if present, is skipped and
// the last data row wins.
func Parse(out []byte) (Measurement, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		m     Measurement
		found bool
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Measurement{}, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if len(rec) < minColumns || strings.EqualFold(rec[colServerID], "Server ID") {
			continue
		}
		parsed, err := parseRow(rec)
		if err != nil {
			return Measurement{}, err
		}
		m, found = parsed, true
	}
	if !found {
		return Measurement{}, fmt.Errorf("%w: no result row", ErrParse)
	}
	return m, nil
}

func parseRow(rec []string) (Measurement, error) {
	ping, err := parseNumber(rec[colPing], "ping")
	if err != nil {
		return Measurement{}, err
	}
	down, err := parseNumber(rec[colDownload], "download")
	if err != nil {
		return Measurement{}, err
	}
	up, err := parseNumber(rec[colUpload], "upload")
	if err != nil {
		return Measurement{}, err
	}

	server := strings.TrimSpace(rec[colSponsor])
	if name := strings.TrimSpace(rec[colServerName]); name != "" {
		if server == "" {
			server = name
		} else {
			server = fmt.Sprintf("%s (%s)", server, name)
		}
	}

	return Measurement{
		Server:       server,
		LatencyMs:    ping,
		DownloadMbps: down / 1e6,
		UploadMbps:   up / 1e6,
	}, nil
}

func parseNumber(s, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s value %q", ErrParse, field, s)
	}
	return v, nil
}
