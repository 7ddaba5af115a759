package image

import (
	"bytes"
	"os"
)

// Load reads a firmware image from path for the CLI harness to replay.
// A file that parses completely as a row-file is flattened; anything else,
// including a row-file with a malformed row, is treated as a flat binary
// image as-is.
func Load(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if rows, err := ParseRows(bytes.NewReader(raw)); err == nil {
		return rows.Flatten(), nil
	}
	return raw, nil
}
