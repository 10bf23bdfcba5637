package eventlog_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/topicstats/pkg/eventlog"
)

const (
	testHeader = "mail,name,topic,text,timestamp\n"
	testMail   = "a@x.com"
	testTopic  = "T1"
	testStamp  = "2024-01-01 10:00:00"
)

func readAll(t *testing.T, r *eventlog.Reader) []eventlog.Record {
	t.Helper()

	var records []eventlog.Record

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return records
		}

		require.NoError(t, err)

		records = append(records, rec)
	}
}

func TestReader_ReadsRecordsByColumnName(t *testing.T) {
	t.Parallel()

	input := testHeader +
		"a@x.com,Alice,T1,hi there,2024-01-01 10:00:00\n" +
		"b@x.com,Bob,T2,\"multi\nline, quoted\",2024-01-02 11:00:00\n"

	r, err := eventlog.NewReader(strings.NewReader(input))
	require.NoError(t, err)

	records := readAll(t, r)
	require.Len(t, records, 2)

	assert.Equal(t, testMail, records[0].Mail)
	assert.Equal(t, "Alice", records[0].Name)
	assert.True(t, records[0].HasName)
	assert.Equal(t, testTopic, records[0].Topic)
	assert.Equal(t, "hi there", records[0].Text)
	assert.Equal(t, testStamp, records[0].Timestamp)
	assert.Equal(t, 2, records[0].Line)

	assert.Equal(t, "multi\nline, quoted", records[1].Text)
	assert.Equal(t, 3, records[1].Line)
	assert.Equal(t, 2, r.Rows())
}

func TestReader_ColumnOrderIndependent(t *testing.T) {
	t.Parallel()

	input := "timestamp,text,mail\n2024-01-01 10:00:00,hello,a@x.com\n"

	r, err := eventlog.NewReader(strings.NewReader(input))
	require.NoError(t, err)

	records := readAll(t, r)
	require.Len(t, records, 1)

	assert.Equal(t, testMail, records[0].Mail)
	assert.Equal(t, "hello", records[0].Text)
	assert.Empty(t, records[0].Topic)
	assert.False(t, records[0].HasName)
}

func TestReader_ShortRowLeavesMissingFieldsEmpty(t *testing.T) {
	t.Parallel()

	input := testHeader + "a@x.com,Alice\n"

	r, err := eventlog.NewReader(strings.NewReader(input))
	require.NoError(t, err)

	records := readAll(t, r)
	require.Len(t, records, 1)

	assert.True(t, records[0].HasName)
	assert.Empty(t, records[0].Timestamp)
	assert.Empty(t, records[0].Text)
}

func TestReader_MissingHeader(t *testing.T) {
	t.Parallel()

	_, err := eventlog.NewReader(strings.NewReader(""))

	require.ErrorIs(t, err, eventlog.ErrMissingHeader)
}

func TestReader_MissingRequiredColumn(t *testing.T) {
	t.Parallel()

	_, err := eventlog.NewReader(strings.NewReader("name,topic,text,timestamp\n"))

	require.ErrorIs(t, err, eventlog.ErrMissingColumn)
	assert.Contains(t, err.Error(), `"mail"`)
}

func TestReader_StripsBOMFromHeader(t *testing.T) {
	t.Parallel()

	input := "\ufeff" + testHeader + "a@x.com,A,T1,x,2024-01-01 10:00:00\n"

	r, err := eventlog.NewReader(strings.NewReader(input))
	require.NoError(t, err)

	records := readAll(t, r)
	require.Len(t, records, 1)
	assert.Equal(t, testMail, records[0].Mail)
}

func TestReader_DropsInvalidUTF8(t *testing.T) {
	t.Parallel()

	input := testHeader + "a@x.com,Al\xffice,T1,he\xfello,2024-01-01 10:00:00\n"

	r, err := eventlog.NewReader(strings.NewReader(input))
	require.NoError(t, err)

	records := readAll(t, r)
	require.Len(t, records, 1)

	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, "hello", records[0].Text)
}

func TestReader_LargeField(t *testing.T) {
	t.Parallel()

	const fieldSize = 10 << 20

	text := strings.Repeat("x", fieldSize)
	input := testHeader + "a@x.com,A,T1," + text + ",2024-01-01 10:00:00\n"

	r, err := eventlog.NewReader(strings.NewReader(input), eventlog.WithBufferSize(4096))
	require.NoError(t, err)

	records := readAll(t, r)
	require.Len(t, records, 1)

	assert.Len(t, records[0].Text, fieldSize)
	assert.Equal(t, testStamp, records[0].Timestamp)
}

func TestReader_LazyQuotes(t *testing.T) {
	t.Parallel()

	input := testHeader + "a@x.com,A,T1,say \"hi\" now,2024-01-01 10:00:00\n"

	r, err := eventlog.NewReader(strings.NewReader(input))
	require.NoError(t, err)

	records := readAll(t, r)
	require.Len(t, records, 1)
	assert.Equal(t, `say "hi" now`, records[0].Text)
}
