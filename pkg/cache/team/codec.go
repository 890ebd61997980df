package team

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// encodeEntry serializes an entry to canonical JSON and compresses it.
//
// Determinism matters: two writes of the same logical entry must produce
// identical object bytes. encoding/json emits struct fields in declaration
// order, and the gzip header is written without a timestamp, so the output
// is a pure function of the entry.
func encodeEntry(entry *RemoteCacheEntry) ([]byte, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, NewCacheError(KindSerializationError, "encode", entry.Metadata.Key, err)
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, NewCacheError(KindSerializationError, "encode", entry.Metadata.Key, err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, NewCacheError(KindSerializationError, "encode", entry.Metadata.Key, err)
	}
	if err := zw.Close(); err != nil {
		return nil, NewCacheError(KindSerializationError, "encode", entry.Metadata.Key, err)
	}
	return buf.Bytes(), nil
}

// decodeEntry decompresses and deserializes an entry. Objects that are not
// valid gzip, not valid JSON, or carry no recognizable schema version are
// classified as serialization errors.
func decodeEntry(key string, data []byte) (*RemoteCacheEntry, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewCacheError(KindSerializationError, "decode", key, err)
	}
	raw, err := io.ReadAll(zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, NewCacheError(KindSerializationError, "decode", key, err)
	}

	var entry RemoteCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, NewCacheError(KindSerializationError, "decode", key, err)
	}
	if entry.SchemaVersion < 1 {
		return nil, NewCacheError(KindSerializationError, "decode", key,
			fmt.Errorf("unrecognized schema version %d", entry.SchemaVersion))
	}
	return &entry, nil
}
