package artifact

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/goccy/go-json"
)

// Meta artifact header, readable without decoding the payload
type Meta struct {
	Key         string    `json:"key"`
	Kind        Kind      `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
	Timestamped bool      `json:"timestamped"`
	Size        int64     `json:"size"`
	CRC32       uint32    `json:"crc32"`
}

// maxHeaderLen bounds the header line; keys are short identifiers
const maxHeaderLen = 4096

// encodeEnvelope header line + '\n' + payload
func encodeEnvelope(meta Meta, payload []byte) ([]byte, error) {
	meta.Size = int64(len(payload))
	meta.CRC32 = crc32.ChecksumIEEE(payload)
	head, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if len(head) >= maxHeaderLen {
		return nil, fmt.Errorf("artifact header too long (%d bytes)", len(head))
	}
	buf := make([]byte, 0, len(head)+1+len(payload))
	buf = append(buf, head...)
	buf = append(buf, '\n')
	return append(buf, payload...), nil
}

// decodeHeader parses the header line of a blob (or just its first line)
func decodeHeader(data []byte) (Meta, int, error) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return Meta{}, 0, ErrCorrupt.WithMsg("missing artifact header")
	}
	var meta Meta
	if err := json.Unmarshal(data[:i], &meta); err != nil {
		return Meta{}, 0, ErrCorrupt.Wrapf(err, "bad artifact header")
	}
	return meta, i + 1, nil
}

// decodeEnvelope verifies size and checksum and returns the raw payload
func decodeEnvelope(data []byte) (Meta, []byte, error) {
	meta, off, err := decodeHeader(data)
	if err != nil {
		return Meta{}, nil, err
	}
	payload := data[off:]
	if int64(len(payload)) != meta.Size {
		return Meta{}, nil, ErrCorrupt.WithMsgf("payload size %d, header says %d", len(payload), meta.Size)
	}
	if crc32.ChecksumIEEE(payload) != meta.CRC32 {
		return Meta{}, nil, ErrCorrupt.WithMsg("payload checksum mismatch")
	}
	return meta, payload, nil
}
