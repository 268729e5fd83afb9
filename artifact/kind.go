package artifact

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/KOMKZ/tickerdesk/table"
)

// Kind physical encoding of an artifact
type Kind string

const (
	// KindHTML rendered HTML text (string)
	KindHTML Kind = "html"
	// KindTable columnar record set (*table.Frame)
	KindTable Kind = "table"
	// KindImage binary blob such as a chart PNG ([]byte)
	KindImage Kind = "image"
)

// Kinds every supported kind
func Kinds() []Kind {
	return []Kind{KindHTML, KindTable, KindImage}
}

// ParseKind parses a kind name
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := codecs[k]; !ok {
		return "", ErrUnknownKind.WithData("kind", s)
	}
	return k, nil
}

// Valid reports whether a codec is registered for the kind
func (k Kind) Valid() bool {
	_, ok := codecs[k]
	return ok
}

// Ext file extension including the dot
func (k Kind) Ext() string {
	if c, ok := codecs[k]; ok {
		return c.Ext()
	}
	return ""
}

// KindForExt maps a file extension (".html", ".json", ".png") back to its kind
func KindForExt(ext string) (Kind, bool) {
	for k, c := range codecs {
		if c.Ext() == ext {
			return k, true
		}
	}
	return "", false
}

func (k Kind) String() string {
	return string(k)
}

// Codec serializer registered for exactly one kind
type Codec interface {
	Ext() string
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
	// Empty reports a payload that must not be served from cache;
	// values of the wrong type are not empty, Encode rejects them
	Empty(v any) bool
}

var codecs = map[Kind]Codec{
	KindHTML:  htmlCodec{},
	KindTable: tableCodec{},
	KindImage: imageCodec{},
}

// CodecFor returns the codec of a kind
func CodecFor(k Kind) (Codec, error) {
	c, ok := codecs[k]
	if !ok {
		return nil, ErrUnknownKind.WithData("kind", string(k))
	}
	return c, nil
}

type htmlCodec struct{}

func (htmlCodec) Ext() string { return ".html" }

func (htmlCodec) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, ErrInvalidValue.WithMsgf("html artifact wants string, got %T", v)
	}
	return []byte(s), nil
}

func (htmlCodec) Decode(data []byte) (any, error) {
	return string(data), nil
}

func (htmlCodec) Empty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

type tableCodec struct{}

func (tableCodec) Ext() string { return ".json" }

func (tableCodec) Encode(v any) ([]byte, error) {
	f, ok := v.(*table.Frame)
	if !ok {
		return nil, ErrInvalidValue.WithMsgf("table artifact wants *table.Frame, got %T", v)
	}
	if f == nil {
		f = table.New()
	}
	return json.Marshal(f)
}

func (tableCodec) Decode(data []byte) (any, error) {
	var f table.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return &f, nil
}

func (tableCodec) Empty(v any) bool {
	if v == nil {
		return true
	}
	f, ok := v.(*table.Frame)
	return ok && f.IsEmpty()
}

type imageCodec struct{}

func (imageCodec) Ext() string { return ".png" }

func (imageCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, ErrInvalidValue.WithMsgf("image artifact wants []byte, got %T", v)
	}
	return b, nil
}

func (imageCodec) Decode(data []byte) (any, error) {
	return data, nil
}

func (imageCodec) Empty(v any) bool {
	if v == nil {
		return true
	}
	b, ok := v.([]byte)
	return ok && len(b) == 0
}
