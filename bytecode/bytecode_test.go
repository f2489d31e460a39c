package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophjp/fjp/isa"
)

func TestEncodeDecodeRoundTrips(t *testing.T) {
	code := []isa.Instruction{
		{Op: isa.INC, L: 0, M: 4},
		{Op: isa.LIT, L: 0, M: -7},
		{Op: isa.STO, L: 1, M: 5},
		{Op: isa.OPR, L: 0, M: int(isa.RET)},
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, code))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, code, got)
}

func TestEncodeEmptyProgram(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil))

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("XYZ\x01\x00\x00\x00\x00")))
	assert.Error(t, err)
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	header := []byte{'F', 'J', 'P', 0xFF, 0, 0, 0, 0}
	_, err := Decode(bytes.NewReader(header))
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []isa.Instruction{{Op: isa.LIT, L: 0, M: 1}}))
	truncated := buf.Bytes()[:buf.Len()-4]
	_, err := Decode(bytes.NewReader(truncated))
	assert.Error(t, err)
}
