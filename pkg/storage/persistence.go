package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/mdbase/mdbase/pkg/domain"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// maxSnapshotLen caps the decompression buffer, so a corrupt size prefix
// cannot force a huge allocation before decompression fails.
const maxSnapshotLen = 1 << 30

// Save persists all collections and schemas to the engine's snapshot file.
func (e *Engine) Save() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.saveSnapshotLocked(e.SnapshotPath())
}

// saveSnapshotLocked writes the snapshot: fixed header, then the msgpack
// body compressed with lz4. The file is written to a temp path and renamed
// into place so readers never observe a partial snapshot.
func (e *Engine) saveSnapshotLocked(filename string) error {
	data := NewSnapshotData()
	for collName, coll := range e.collections {
		docs := make(map[string]map[string]interface{}, len(coll.Documents))
		for docID, doc := range coll.Documents {
			docs[docID] = map[string]interface{}(doc)
		}
		data.Collections[collName] = docs
	}
	for collName, schema := range e.schemas {
		fields := make(map[string]string, len(schema))
		for field, t := range schema {
			fields[field] = t.String()
		}
		data.Schemas[collName] = fields
	}

	msgpackData, err := msgpack.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	compressed := make([]byte, lz4.CompressBlockBound(len(msgpackData)))
	var hashTable [1 << 16]int
	n, err := lz4.CompressBlock(msgpackData, compressed, hashTable[:])
	if err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	compressed = compressed[:n]

	tmp, err := os.CreateTemp(e.dataDir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := writeSnapshotFile(tmp, len(msgpackData), compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func writeSnapshotFile(w io.Writer, rawSize int, compressed []byte) error {
	if err := WriteHeader(w); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	// Raw size prefix so loading can allocate the exact decompression buffer.
	if err := binary.Write(w, binary.LittleEndian, uint64(rawSize)); err != nil {
		return fmt.Errorf("failed to write size prefix: %w", err)
	}
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("failed to write compressed data: %w", err)
	}
	return nil
}

// loadSnapshot populates collections and schemas from the snapshot file.
// A missing file is not an error: the database starts empty.
func (e *Engine) loadSnapshot(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := ReadHeader(f); err != nil {
		return fmt.Errorf("invalid file header: %w", err)
	}
	var rawSize uint64
	if err := binary.Read(f, binary.LittleEndian, &rawSize); err != nil {
		return fmt.Errorf("failed to read size prefix: %w", err)
	}
	if rawSize > maxSnapshotLen {
		return fmt.Errorf("implausible snapshot size %d", rawSize)
	}

	compressed, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read compressed data: %w", err)
	}
	raw := make([]byte, int(rawSize))
	n, err := lz4.UncompressBlock(compressed, raw)
	if err != nil {
		return fmt.Errorf("failed to decompress data: %w", err)
	}
	raw = raw[:n]

	var data SnapshotData
	if err := msgpack.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to decode MessagePack: %w", err)
	}

	for collName, docs := range data.Collections {
		coll := domain.NewCollection(collName)
		for docID, fields := range docs {
			doc := domain.Document{}
			for key, value := range fields {
				doc[key] = value
			}
			doc[domain.IDField] = docID
			coll.Documents[docID] = doc
		}
		e.collections[collName] = coll
	}
	for collName, fields := range data.Schemas {
		schema := make(Schema, len(fields))
		for field, typeName := range fields {
			schema[field] = domain.ParseFieldType(typeName)
		}
		e.schemas[collName] = schema
	}
	return nil
}
