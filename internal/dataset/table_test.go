package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsOpaqueColumns(t *testing.T) {
	in := "job_id,title,description,salary\n" +
		"1,Engineer,\"Build things, fast\",100000\n" +
		"2,Clerk,Filing,\n"
	tbl, err := Parse([]byte(in), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"job_id", "title", "description", "salary"}, tbl.Header)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "Build things, fast", tbl.Rows[0][2])
	assert.Equal(t, "100000", tbl.Rows[0][3])
	assert.Equal(t, 1, tbl.MissingCount())
}

func TestParsePadsShortRowsAndFillsNA(t *testing.T) {
	in := "title,description,location\n" +
		"A,NaN,Remote\n" +
		"B\n" +
		"C,null,N/A\n"
	tbl, err := Parse([]byte(in), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, 5, tbl.MissingCount())

	filled := tbl.FillMissing()
	assert.Equal(t, 5, filled)
	assert.Equal(t, 0, tbl.MissingCount())
	assert.Equal(t, []string{"A", "", "Remote"}, tbl.Rows[0])
	assert.Equal(t, []string{"B", "", ""}, tbl.Rows[1])
	assert.Equal(t, []string{"C", "", ""}, tbl.Rows[2])
}

func TestParseWithoutNADetectionKeepsTokens(t *testing.T) {
	opt := DefaultOptions()
	opt.DetectNA = false
	tbl, err := Parse([]byte("description\nNA\n"), opt)
	require.NoError(t, err)
	tbl.FillMissing()
	assert.Equal(t, "NA", tbl.Rows[0][0])
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{name: "empty", in: nil, want: ErrNoColumns},
		{name: "blank lines only", in: []byte("\n\n"), want: ErrNoColumns},
		{name: "binary", in: []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe}, want: ErrInvalidEncoding},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.in, DefaultOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}

	_, err := Parse([]byte("a,b\n1,2,3\n"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 fields, saw 3")

	_, err = Parse([]byte("a,b\n\"unterminated,2\n"), DefaultOptions())
	require.Error(t, err)
}

func TestParseHeaderOnly(t *testing.T) {
	tbl, err := Parse([]byte("title,description\n"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.True(t, tbl.HasColumn("description"))
}

func TestParseStripsBOMAndNormalizesHeader(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, []byte("description,,title,title\nx,y,z,w\n")...)
	tbl, err := Parse(in, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"description", "Unnamed: 1", "title", "title.1"}, tbl.Header)
}

func TestColumnIsCaseSensitive(t *testing.T) {
	tbl, err := Parse([]byte("Description\nhello\n"), DefaultOptions())
	require.NoError(t, err)
	assert.False(t, tbl.HasColumn("description"))
	_, err = tbl.Column("description")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestCloneAndSetColumnLeaveOriginalUntouched(t *testing.T) {
	tbl, err := Parse([]byte("description,fraudulent\nfoo,keep\n"), DefaultOptions())
	require.NoError(t, err)

	cp := tbl.Clone()
	require.NoError(t, cp.SetColumn("fraudulent", []string{"1"}))
	require.NoError(t, cp.SetColumn("fraud_probability", []string{"0.9"}))

	assert.Equal(t, []string{"description", "fraudulent"}, tbl.Header)
	assert.Equal(t, []string{"foo", "keep"}, tbl.Rows[0])
	assert.Equal(t, []string{"description", "fraudulent", "fraud_probability"}, cp.Header)
	assert.Equal(t, []string{"foo", "1", "0.9"}, cp.Rows[0])

	assert.Error(t, cp.SetColumn("x", []string{"a", "b"}))
}

func TestBytesRoundTrip(t *testing.T) {
	in := "description,note\n\"multi\nline\",\"quote \"\"here\"\"\"\nplain,\n"
	tbl, err := Parse([]byte(in), DefaultOptions())
	require.NoError(t, err)
	tbl.FillMissing()

	out, err := tbl.Bytes()
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(out), "\r\n"))

	again, err := Parse(out, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, tbl.Header, again.Header)
	assert.Equal(t, tbl.Rows, again.Rows)
}

func TestDelimiterFor(t *testing.T) {
	assert.Equal(t, '\t', DelimiterFor("jobs.TSV"))
	assert.Equal(t, ',', DelimiterFor("jobs.csv"))
	assert.Equal(t, ',', DelimiterFor("jobs"))
}
