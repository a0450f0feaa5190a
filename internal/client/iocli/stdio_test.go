package iocli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStdio(t *testing.T) {
	stdio := NewStdio()
	assert.NotNil(t, stdio)
}

func TestStream_PrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stream := NewStream(strings.NewReader(""), &out)

	stream.Println("hello", "world")
	stream.Printf("status: %s (%d)\n", "Synced", 2)
	_, err := stream.Write([]byte("raw\n"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\nstatus: Synced (2)\nraw\n", out.String())
}

func TestStream_ReadInput(t *testing.T) {
	var out bytes.Buffer
	stream := NewStream(strings.NewReader("first line\r\n  second  \nlast"), &out)

	line, err := stream.ReadInput("> ")
	require.NoError(t, err)
	assert.Equal(t, "first line", line)

	// Пробелы внутри строки сохраняются: это текст страницы
	line, err = stream.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "  second  ", line)

	line, err = stream.ReadInput("")
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = stream.ReadInput("")
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, "> ", out.String())
}

func TestStream_NotInteractive(t *testing.T) {
	stream := NewStream(strings.NewReader(""), io.Discard)
	assert.False(t, stream.Interactive())
}
