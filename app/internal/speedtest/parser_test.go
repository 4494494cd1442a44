package speedtest

import (
	"errors"
	"math"
	"testing"
)

const sampleCSV = `Server ID,Sponsor,Server Name,Timestamp,Distance,Ping,Download,Upload,Share,IP Address
21541,Fiber Co,Berlin,2024-03-01T12:00:00.000000Z,12.345,11.5,94320000.5,38110000.25,,203.0.113.7
`

func TestParse_SpeedtestCLI(t *testing.T) {
	m, err := Parse([]byte(sampleCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Server != "Fiber Co (Berlin)" {
		t.Errorf("unexpected server %q", m.Server)
	}
	if m.LatencyMs != 11.5 {
		t.Errorf("expected latency 11.5, got %v", m.LatencyMs)
	}
	if math.Abs(m.DownloadMbps-94.3200005) > 1e-9 {
		t.Errorf("expected ~94.32 Mbps down, got %v", m.DownloadMbps)
	}
	if math.Abs(m.UploadMbps-38.11000025) > 1e-9 {
		t.Errorf("expected ~38.11 Mbps up, got %v", m.UploadMbps)
	}
}

func TestParse_NoHeader(t *testing.T) {
	out := "1,Sponsor,,2024-03-01T12:00:00Z,1.0,5,1000000,2000000,,198.51.100.1\n"
	m, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Server != "Sponsor" || m.DownloadMbps != 1 || m.UploadMbps != 2 {
		t.Errorf("unexpected measurement %+v", m)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":       "",
		"header only": "Server ID,Sponsor,Server Name,Timestamp,Distance,Ping,Download,Upload,Share,IP Address\n",
		"garbage":     "Cannot retrieve speedtest configuration\n",
		"bad number":  "1,S,N,2024-03-01T12:00:00Z,1.0,fast,100,200,,1.2.3.4\n",
	}
	for name, out := range cases {
		if _, err := Parse([]byte(out)); !errors.Is(err, ErrParse) {
			t.Errorf("%s: expected ErrParse, got %v", name, err)
		}
	}
}
