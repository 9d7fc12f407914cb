package masterdata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// LoadFile reads reference data from a JSON file. An empty path yields an
// empty catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(Data{}), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("masterdata: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes reference data. Legacy exports encoded as ISO-8859-1 are
// transcoded to UTF-8 first.
func Load(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("masterdata: read: %w", err)
	}
	raw, err = DecodeText(raw)
	if err != nil {
		return nil, err
	}
	var data Data
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return nil, fmt.Errorf("masterdata: decode: %w", err)
	}
	return NewCatalog(data), nil
}

// DecodeText returns raw unchanged when it is valid UTF-8 and otherwise
// transcodes it from ISO-8859-1.
func DecodeText(raw []byte) ([]byte, error) {
	if utf8.Valid(raw) {
		return raw, nil
	}
	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("masterdata: decode latin1: %w", err)
	}
	return decoded, nil
}
