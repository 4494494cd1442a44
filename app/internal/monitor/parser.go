package monitor

import (
	"regexp"
	"strconv"
)

// Reply is one parsed probe reply line.
type Reply struct {
	Sequence  int
	TTL       int
	LatencyMs float64
}

// Matches the iputils and BSD ping reply formats, e.g.
// "64 bytes from 1.1.1.1: icmp_seq=3 ttl=57 time=11.2 ms".
var replyPattern = regexp.MustCompile(`(?i)(?:icmp_)?seq=(\d+)\s+ttl=(\d+)\s+time[=<]([\d.]+)\s*ms`)

// ParseReply extracts a reply from a probe output line. Headers, summaries
// and error lines do not match and return ok=false.
func ParseReply(line string) (Reply, bool) {
	m := replyPattern.FindStringSubmatch(line)
	if m == nil {
		return Reply{}, false
	}
	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return Reply{}, false
	}
	ttl, err := strconv.Atoi(m[2])
	if err != nil {
		return Reply{}, false
	}
	latency, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return Reply{}, false
	}
	return Reply{Sequence: seq, TTL: ttl, LatencyMs: latency}, true
}
