package storage

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// Magic bytes to identify a snapshot file
	MagicBytes = "MDBS"
	// Current snapshot format version
	FormatVersion = 1
	// File extension for snapshot files
	FileExtension = ".mdbs"
)

// FileHeader is the fixed-size header of a snapshot file.
type FileHeader struct {
	Magic    [4]byte // "MDBS"
	Version  uint8
	Flags    uint8   // Reserved for future use
	Reserved [2]byte // Reserved for future use
}

// WriteHeader writes the snapshot header to the given writer
func WriteHeader(w io.Writer) error {
	header := FileHeader{
		Magic:   [4]byte{'M', 'D', 'B', 'S'},
		Version: FormatVersion,
	}
	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates the snapshot header
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if string(header.Magic[:]) != MagicBytes {
		return nil, fmt.Errorf("invalid file format: expected %s, got %s", MagicBytes, string(header.Magic[:]))
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported file version: %d", header.Version)
	}
	return &header, nil
}

// SnapshotData is the msgpack-encoded body of a snapshot file. Indexes are
// deliberately absent: they persist in their own files and rebuild from
// documents when those are damaged.
type SnapshotData struct {
	Collections map[string]map[string]map[string]interface{} `msgpack:"collections"`
	Schemas     map[string]map[string]string                 `msgpack:"schemas,omitempty"`
	Metadata    map[string]interface{}                       `msgpack:"metadata,omitempty"`
}

// NewSnapshotData creates an empty snapshot body
func NewSnapshotData() *SnapshotData {
	return &SnapshotData{
		Collections: make(map[string]map[string]map[string]interface{}),
		Schemas:     make(map[string]map[string]string),
		Metadata:    make(map[string]interface{}),
	}
}
