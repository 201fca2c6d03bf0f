package audit

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(lines ...string) [][]byte {
	out := make([][]byte, len(lines))
	for i, l := range lines {
		out[i] = []byte(l)
	}
	return out
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, Summary{}, s)
	assert.Nil(t, s.AvgMS)
	assert.Nil(t, s.P95MS)
	assert.Equal(t, RateSet{}, Rates(s))
}

func TestSummarize_SkipsMalformed(t *testing.T) {
	s := Summarize(rows("bad json", `{"mode":"allow","ms":100}`))
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.Modes.Allow)
	require.NotNil(t, s.AvgMS)
	assert.Equal(t, 100.0, *s.AvgMS)
	assert.Equal(t, 100.0, *s.P95MS)
}

func TestSummarize_Aggregates(t *testing.T) {
	s := Summarize(rows(
		`{"mode":" ALLOW ","ms":10}`,
		`{"mode":"strict","ms":20,"pii_present":true}`,
		`{"mode":"block","ms":"slow","abuse_reasons":["spam"]}`,
		`{"mode":"shadow","ms":-1,"abuse_reasons":[]}`,
		`{"ms":30}`,
		`[1,2,3]`,
		`42`,
		`{"mode":"allow","ms":40,"pii_present":true,"abuse_reasons":["pii","scrape"]}`,
	))
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, Modes{Allow: 2, Strict: 1, Block: 1, Other: 2}, s.Modes)
	assert.Equal(t, 2, s.PIIPresent)
	assert.Equal(t, 2, s.AbuseWithReasons)
	require.NotNil(t, s.AvgMS)
	assert.Equal(t, 25.0, *s.AvgMS) // 10, 20, 30, 40
	// idx = floor(0.95*3) = 2
	assert.Equal(t, 30.0, *s.P95MS)

	r := Rates(s)
	assert.InDelta(t, 33.33, r.Allow, 1e-9)
	assert.InDelta(t, 16.67, r.Block, 1e-9)
	assert.InDelta(t, 33.33, r.PII, 1e-9)
}

func TestSummarize_NoNumericLatency(t *testing.T) {
	s := Summarize(rows(`{"mode":"allow"}`, `{"mode":"block","ms":null}`))
	assert.Equal(t, 2, s.Total)
	assert.Nil(t, s.AvgMS)
	assert.Nil(t, s.P95MS)
}

func TestSummarize_P95NearestRank(t *testing.T) {
	var lines []string
	for i := 100; i >= 1; i-- {
		lines = append(lines, `{"mode":"allow","ms":`+strconv.Itoa(i)+`}`)
	}
	s := Summarize(rows(lines...))
	// idx = floor(0.95*99) = 94 -> 95th smallest
	assert.Equal(t, 95.0, *s.P95MS)
	assert.Equal(t, 50.5, *s.AvgMS)
}

func TestParseRow_Lenient(t *testing.T) {
	r, ok := ParseRow([]byte(`{"mode":"block","ms":"12","pii_present":"yes","abuse_reasons":"spam"}`))
	require.True(t, ok)
	assert.Equal(t, "block", r.Mode)
	assert.Nil(t, r.MS)
	assert.False(t, r.PIIPresent)
	assert.Empty(t, r.AbuseReasons)

	_, ok = ParseRow([]byte(`{"mode":`))
	assert.False(t, ok)
}

func TestSummarizeReader(t *testing.T) {
	in := strings.NewReader("{\"mode\":\"allow\",\"ms\":5}\n\n  \nnot json\n{\"mode\":\"strict\",\"ms\":15}\n")
	s, err := SummarizeReader(in)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 10.0, *s.AvgMS)
}

func TestReadRows_OversizedLineSkipped(t *testing.T) {
	in := `{"mode":"allow","ms":5}` + "\n" +
		strings.Repeat("x", maxLineBytes+10) + "\n" +
		`{"mode":"block","ms":7}` + "\n"

	rows, err := ReadRows(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"mode":"block","ms":7}`, string(rows[1]))

	s, err := SummarizeReader(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, Modes{Allow: 1, Block: 1}, s.Modes)
	require.NotNil(t, s.AvgMS)
	assert.Equal(t, 6.0, *s.AvgMS)
}

func TestReadRows_LineAtLimitKept(t *testing.T) {
	row := `{"mode":"allow","pad":"` + strings.Repeat("p", maxLineBytes-40) + `"}`
	require.LessOrEqual(t, len(row), maxLineBytes)

	// Final line without a trailing newline, CRLF endings
	rows, err := ReadRows(strings.NewReader(row + "\r\n\n" + `{"mode":"strict"}`))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(row))
	assert.Equal(t, `{"mode":"strict"}`, string(rows[1]))
}
