package image

import (
	"strings"
	"testing"
)

func TestParseRowsSingleRow(t *testing.T) {
	input := "1E9602AA0000\n" +
		"000000040001020304F2\n"

	rows, err := ParseRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows.SiliconID != 0x1E9602AA || rows.SiliconRev != 0x00 || rows.ChecksumType != 0x00 {
		t.Fatalf("header parsed incorrectly: %+v", rows)
	}
	if len(rows.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows.Rows))
	}
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if string(rows.Rows[0].Data) != string(want) {
		t.Fatalf("row data = %v, want %v", rows.Rows[0].Data, want)
	}
}

func TestParseRowsFlattensInRowNumOrder(t *testing.T) {
	input := "1E9602AA0000\n" +
		"000100040005060708E1\n" +
		"000000040001020304F2\n"

	rows, err := ParseRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	flat := rows.Flatten()
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	if string(flat) != string(want) {
		t.Fatalf("Flatten() = %v, want %v (row 0 before row 1 regardless of file order)", flat, want)
	}
}

func TestParseRowsRejectsChecksumMismatch(t *testing.T) {
	input := "1E9602AA0000\n" +
		"00000004000102030400\n"

	if _, err := ParseRows(strings.NewReader(input)); err == nil {
		t.Fatal("expected an error for a row with a bad checksum")
	}
}

func TestParseRowsRejectsEmptyInput(t *testing.T) {
	if _, err := ParseRows(strings.NewReader("")); err == nil {
		t.Fatal("expected an error for an empty row-file")
	}
}
