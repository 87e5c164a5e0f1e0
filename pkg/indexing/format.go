package indexing

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/mdbase/mdbase/pkg/domain"
)

const (
	// Magic bytes to identify an index file
	IndexMagic = "MDIX"
	// Current index format version
	IndexFormatVersion = 1
	// File extension for persisted indexes
	IndexFileExtension = ".mdix"
)

// IndexKind selects the index structure. Only the ordered kind is
// implemented; the other values are reserved by the file format.
type IndexKind uint8

const (
	KindOrdered IndexKind = iota
	KindHash
	KindFullText
)

// FileHeader is the fixed-size header of an index file. The struct layout
// matches the on-disk layout exactly (32 bytes, little-endian).
type FileHeader struct {
	Magic      [4]byte // "MDIX"
	Version    uint32
	Kind       uint8
	FieldType  uint8
	EntryCount uint64
	Reserved   [14]byte
}

// WriteHeader writes an index file header to the given writer
func WriteHeader(w io.Writer, kind IndexKind, fieldType domain.FieldType, entryCount uint64) error {
	header := FileHeader{
		Magic:      [4]byte{'M', 'D', 'I', 'X'},
		Version:    IndexFormatVersion,
		Kind:       uint8(kind),
		FieldType:  uint8(fieldType),
		EntryCount: entryCount,
	}
	return binary.Write(w, binary.LittleEndian, header)
}

// ReadHeader reads and validates an index file header. Any mismatch reports
// domain.ErrIndexCorrupt so the caller can rebuild instead of trusting the file.
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: truncated header: %v", domain.ErrIndexCorrupt, err)
	}
	if string(header.Magic[:]) != IndexMagic {
		return nil, fmt.Errorf("%w: bad magic %q", domain.ErrIndexCorrupt, header.Magic[:])
	}
	if header.Version != IndexFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", domain.ErrIndexCorrupt, header.Version)
	}
	return &header, nil
}

// encodeKey serializes a canonical key value (bool, int64, float64, string)
// using the type-specific encoding of the field type.
func encodeKey(key interface{}, t domain.FieldType) ([]byte, error) {
	switch t {
	case domain.FieldTypeBool:
		b, ok := key.(bool)
		if !ok {
			return nil, fmt.Errorf("key %v is not a bool", key)
		}
		if b {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case domain.FieldTypeInt:
		i, ok := key.(int64)
		if !ok {
			return nil, fmt.Errorf("key %v is not an int64", key)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(i))
		return buf, nil
	case domain.FieldTypeFloat:
		f, ok := key.(float64)
		if !ok {
			return nil, fmt.Errorf("key %v is not a float64", key)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(f))
		return buf, nil
	case domain.FieldTypeString, domain.FieldTypeDate, domain.FieldTypeDateTime:
		s, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("key %v is not a string", key)
		}
		return []byte(s), nil
	default:
		return nil, fmt.Errorf("field type %s has no key encoding", t)
	}
}

// decodeKey is the inverse of encodeKey.
func decodeKey(data []byte, t domain.FieldType) (interface{}, error) {
	switch t {
	case domain.FieldTypeBool:
		if len(data) != 1 {
			return nil, fmt.Errorf("bool key has length %d", len(data))
		}
		return data[0] != 0, nil
	case domain.FieldTypeInt:
		if len(data) != 8 {
			return nil, fmt.Errorf("int key has length %d", len(data))
		}
		return int64(binary.BigEndian.Uint64(data)), nil
	case domain.FieldTypeFloat:
		if len(data) != 8 {
			return nil, fmt.Errorf("float key has length %d", len(data))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	case domain.FieldTypeString, domain.FieldTypeDate, domain.FieldTypeDateTime:
		return string(data), nil
	default:
		return nil, fmt.Errorf("field type %s has no key encoding", t)
	}
}

// WriteTo serializes the index: fixed header followed by entries in
// ascending key order.
func (idx *Index) WriteTo(w io.Writer) error {
	if err := WriteHeader(w, idx.Kind, idx.Type, uint64(len(idx.entries))); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, entry := range idx.entries {
		keyBytes, err := encodeKey(entry.Key, idx.Type)
		if err != nil {
			return fmt.Errorf("failed to encode key: %w", err)
		}
		if err := writeLengthPrefixed(w, keyBytes); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(entry.IDs))); err != nil {
			return err
		}
		for _, id := range entry.IDs {
			if err := writeLengthPrefixed(w, []byte(id)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadFrom deserializes an index from r into idx, replacing its entries.
// A truncated entry, an entry count that disagrees with the decoded data, or
// a bad magic/version all report domain.ErrIndexCorrupt rather than
// returning partial data.
func (idx *Index) ReadFrom(r io.Reader) error {
	header, err := ReadHeader(r)
	if err != nil {
		return err
	}
	idx.Kind = IndexKind(header.Kind)
	idx.Type = domain.FieldType(header.FieldType)

	entries := make([]Entry, 0, header.EntryCount)
	for i := uint64(0); i < header.EntryCount; i++ {
		keyBytes, err := readLengthPrefixed(r)
		if err != nil {
			return fmt.Errorf("%w: partial entry %d: %v", domain.ErrIndexCorrupt, i, err)
		}
		key, err := decodeKey(keyBytes, idx.Type)
		if err != nil {
			return fmt.Errorf("%w: entry %d: %v", domain.ErrIndexCorrupt, i, err)
		}
		var idCount uint32
		if err := binary.Read(r, binary.LittleEndian, &idCount); err != nil {
			return fmt.Errorf("%w: partial entry %d: %v", domain.ErrIndexCorrupt, i, err)
		}
		ids := make([]string, 0, idCount)
		for j := uint32(0); j < idCount; j++ {
			idBytes, err := readLengthPrefixed(r)
			if err != nil {
				return fmt.Errorf("%w: partial entry %d: %v", domain.ErrIndexCorrupt, i, err)
			}
			ids = append(ids, string(idBytes))
		}
		entries = append(entries, Entry{Key: key, IDs: ids})
	}

	// The declared count must account for the whole file; trailing data
	// means the header and body disagree.
	var trailing [1]byte
	if n, _ := r.Read(trailing[:]); n != 0 {
		return fmt.Errorf("%w: trailing data after %d entries", domain.ErrIndexCorrupt, header.EntryCount)
	}

	idx.entries = entries
	return nil
}

func writeLengthPrefixed(w io.Writer, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// maxBlobLen bounds length prefixes so a corrupt file cannot trigger a huge
// allocation before the count mismatch is detected.
const maxBlobLen = 1 << 28

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > maxBlobLen {
		return nil, fmt.Errorf("implausible blob length %d", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
