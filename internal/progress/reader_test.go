package progress

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_ReportsPercentages(t *testing.T) {
	data := bytes.Repeat([]byte("a"), 1000)

	var got []int
	r := NewReader(bytes.NewReader(data), int64(len(data)), func(p int) { got = append(got, p) })

	buf := make([]byte, 250)
	for {
		_, err := r.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	assert.Equal(t, []int{25, 50, 75, 100}, got)
}

func TestReader_UnknownSize(t *testing.T) {
	called := false
	r := NewReader(strings.NewReader("hello"), -1, func(int) { called = true })

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
	assert.False(t, called)
}

func TestCounter_CoalescesAndClamps(t *testing.T) {
	var got []int
	c := NewCounter(200, func(p int) { got = append(got, p) })

	c.Add(1) // 0%
	c.Add(0)
	c.Add(1) // 1%
	c.Add(1) // still 1%
	c.Add(1000)

	assert.Equal(t, []int{0, 1, 100}, got)

	c.Reset()
	c.Add(100)
	assert.Equal(t, []int{0, 1, 100, 50}, got)
}

func TestSink_CountsBufferLengths(t *testing.T) {
	var got []int
	s := NewSink(10, func(p int) { got = append(got, p) })

	n, err := s.Read(make([]byte, 5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, _ = s.Read(make([]byte, 5))
	assert.Equal(t, []int{50, 100}, got)
}
