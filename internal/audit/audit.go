// Package audit summarizes sup-gate audit rows for dashboards.
package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/erenyeger719-jpg/YBuilt-sub002/internal/logging"
)

// maxLineBytes bounds one JSONL row.
const maxLineBytes = 1 << 20

// Row is the decoded view of one audit record.
type Row struct {
	Mode         string   `json:"mode"`
	MS           *float64 `json:"ms"`
	PIIPresent   bool     `json:"pii_present"`
	AbuseReasons []string `json:"abuse_reasons"`
}

// ParseRow decodes a raw row field by field so a badly typed field is
// ignored instead of discarding the row. Returns false when raw is not a
// JSON object.
func ParseRow(raw []byte) (Row, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Row{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Row{}, false
	}

	var r Row
	_ = json.Unmarshal(fields["mode"], &r.Mode)
	_ = json.Unmarshal(fields["pii_present"], &r.PIIPresent)
	_ = json.Unmarshal(fields["abuse_reasons"], &r.AbuseReasons)

	var ms float64
	if v, ok := fields["ms"]; ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		if err := json.Unmarshal(v, &ms); err == nil && !math.IsNaN(ms) && !math.IsInf(ms, 0) && ms >= 0 {
			r.MS = &ms
		}
	}
	return r, true
}

// Modes counts rows per sup-gate mode.
type Modes struct {
	Allow  int `json:"allow"`
	Strict int `json:"strict"`
	Block  int `json:"block"`
	Other  int `json:"other"`
}

// Summary aggregates a set of rows. AvgMS and P95MS are nil when no row
// carried a usable latency.
type Summary struct {
	Total            int      `json:"total"`
	Modes            Modes    `json:"modes"`
	AvgMS            *float64 `json:"avg_ms"`
	P95MS            *float64 `json:"p95_ms"`
	PIIPresent       int      `json:"pii_present"`
	AbuseWithReasons int      `json:"abuse_with_reasons"`
}

// Summarize aggregates raw JSON rows. Rows that are not JSON objects are
// skipped.
func Summarize(rows [][]byte) Summary {
	var s Summary
	var latencies []float64
	skipped := 0

	for _, raw := range rows {
		r, ok := ParseRow(raw)
		if !ok {
			skipped++
			continue
		}
		s.Total++
		switch strings.ToLower(strings.TrimSpace(r.Mode)) {
		case "allow":
			s.Modes.Allow++
		case "strict":
			s.Modes.Strict++
		case "block":
			s.Modes.Block++
		default:
			s.Modes.Other++
		}
		if r.PIIPresent {
			s.PIIPresent++
		}
		if len(r.AbuseReasons) > 0 {
			s.AbuseWithReasons++
		}
		if r.MS != nil {
			latencies = append(latencies, *r.MS)
		}
	}

	if len(latencies) > 0 {
		sort.Float64s(latencies)
		sum := 0.0
		for _, v := range latencies {
			sum += v
		}
		avg := sum / float64(len(latencies))
		p95 := latencies[int(math.Floor(0.95*float64(len(latencies)-1)))]
		s.AvgMS, s.P95MS = &avg, &p95
	}
	if skipped > 0 {
		logging.AuditDebug("skipped %d malformed rows of %d", skipped, len(rows))
	}
	return s
}

// SummarizeReader summarizes a JSONL stream.
func SummarizeReader(r io.Reader) (Summary, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(rows), nil
}

// ReadRows splits a JSONL stream into rows. A line longer than 1 MiB is
// discarded as one malformed row; reading continues with the next line.
func ReadRows(r io.Reader) ([][]byte, error) {
	var (
		rows      [][]byte
		line      []byte
		oversized bool
		dropped   int
	)
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > maxLineBytes+2 {
				oversized, line = true, line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audit rows: %w", err)
		}

		row := bytes.TrimSpace(line)
		switch {
		case oversized || len(row) > maxLineBytes:
			dropped++
		case len(row) > 0:
			rows = append(rows, append([]byte(nil), row...))
		}
		line, oversized = line[:0], false

		if err != nil {
			break
		}
	}
	if dropped > 0 {
		logging.AuditWarn("dropped %d audit rows longer than %d bytes", dropped, maxLineBytes)
	}
	return rows, nil
}

// RateSet holds percentages of the total (0-100).
type RateSet struct {
	Allow  float64 `json:"allow_pct"`
	Strict float64 `json:"strict_pct"`
	Block  float64 `json:"block_pct"`
	PII    float64 `json:"pii_pct"`
	Abuse  float64 `json:"abuse_pct"`
}

// Rates derives percentages from s. All are zero when s is empty.
func Rates(s Summary) RateSet {
	if s.Total == 0 {
		return RateSet{}
	}
	pct := func(n int) float64 {
		return math.Round(float64(n)*10000/float64(s.Total)) / 100
	}
	return RateSet{
		Allow:  pct(s.Modes.Allow),
		Strict: pct(s.Modes.Strict),
		Block:  pct(s.Modes.Block),
		PII:    pct(s.PIIPresent),
		Abuse:  pct(s.AbuseWithReasons),
	}
}
