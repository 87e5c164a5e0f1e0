package storage

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHeader_WriteAndRead(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHeader(&buf)
	require.NoError(t, err)

	// 4 bytes magic + 1 byte version + 1 byte flags + 2 bytes reserved
	assert.Len(t, buf.Bytes(), 8)

	header, err := ReadHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, MagicBytes, string(header.Magic[:]))
	assert.EqualValues(t, FormatVersion, header.Version)
	assert.Equal(t, uint8(0), header.Flags)
}

func TestReadHeader_InvalidMagic(t *testing.T) {
	var buf bytes.Buffer
	invalid := FileHeader{
		Magic:   [4]byte{'I', 'N', 'V', 'L'},
		Version: FormatVersion,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, invalid))

	_, err := ReadHeader(&buf)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file format")
}

func TestReadHeader_InvalidVersion(t *testing.T) {
	var buf bytes.Buffer
	invalid := FileHeader{
		Magic:   [4]byte{'M', 'D', 'B', 'S'},
		Version: 99,
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, invalid))

	_, err := ReadHeader(&buf)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file version")
}

func TestReadHeader_Truncated(t *testing.T) {
	buf := bytes.NewBuffer([]byte("MD"))
	_, err := ReadHeader(buf)
	assert.Error(t, err)
}
