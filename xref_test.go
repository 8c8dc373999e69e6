// github.com/inkwellpdf/pdf - a library for reading PDF files
// Copyright (C) 2026  The inkwell-pdf authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

import (
	"bytes"
	"fmt"
	"testing"
)

func TestFindStartXRef(t *testing.T) {
	buf := []byte("%PDF-1.7\nsome content\nstartxref\n42\n%%EOF\n")
	pos, err := findStartXRef(buf)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 42 {
		t.Errorf("expected 42 but got %d", pos)
	}

	// the last startxref wins
	buf = []byte("startxref\n10\nmore\nstartxref\n20\n%%EOF")
	pos, err = findStartXRef(buf)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 20 {
		t.Errorf("expected 20 but got %d", pos)
	}

	cases := []string{
		"%PDF-1.7\nno pointer here\n%%EOF",
		"startxref\n-5\n%%EOF",
		"startxref\n123456789\n%%EOF", // beyond the end of the file
		"startxref\nnope\n%%EOF",
	}
	for _, in := range cases {
		_, err := findStartXRef([]byte(in))
		if err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestReadXRefTable(t *testing.T) {
	buf := []byte(`xref
0 3
0000000000 65535 f
0000000100 00000 n
0000000200 00002 n
trailer
<< /Size 3 /Root 1 0 R >>
`)
	xref, trailer, err := readXRef(buf, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !xref[0].IsFree() || xref[0].Generation != 65535 {
		t.Errorf("entry 0: got %+v", xref[0])
	}
	if xref[1].Pos != 100 || xref[1].Generation != 0 {
		t.Errorf("entry 1: got %+v", xref[1])
	}
	if xref[2].Pos != 200 || xref[2].Generation != 2 {
		t.Errorf("entry 2: got %+v", xref[2])
	}

	if trailer["Root"] != NewReference(1, 0) {
		t.Errorf("wrong /Root: %s", Format(trailer["Root"]))
	}
	if trailer["Size"] != Integer(3) {
		t.Errorf("wrong /Size: %s", Format(trailer["Size"]))
	}
}

func TestReadXRefSubsections(t *testing.T) {
	buf := []byte(`xref
0 1
0000000000 65535 f
10 2
0000000111 00000 n
0000000222 00000 n
trailer
<< /Size 12 >>
`)
	xref, _, err := readXRef(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(xref) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(xref))
	}
	if xref[10].Pos != 111 || xref[11].Pos != 222 {
		t.Errorf("got %+v and %+v", xref[10], xref[11])
	}
}

// An update shadows entries of the original section, but objects unknown to
// the update stay visible.
func TestReadXRefChain(t *testing.T) {
	buf := []byte("%PDF-1.7\n")
	oldStart := int64(len(buf))
	buf = append(buf, []byte(`xref
0 3
0000000000 65535 f
0000000100 00000 n
0000000200 00000 n
trailer
<< /Size 3 /Root 1 0 R /Info 2 0 R >>
`)...)
	newStart := int64(len(buf))
	buf = append(buf, []byte(fmt.Sprintf(`xref
1 1
0000000300 00000 n
trailer
<< /Size 4 /Root 1 0 R /Prev %d >>
`, oldStart))...)

	xref, trailer, err := readXRef(buf, newStart)
	if err != nil {
		t.Fatal(err)
	}
	if xref[1].Pos != 300 {
		t.Errorf("update must shadow the old entry, got %+v", xref[1])
	}
	if xref[2].Pos != 200 {
		t.Errorf("old entry must stay visible, got %+v", xref[2])
	}

	// where both trailers carry a key, the newest section wins
	if trailer["Size"] != Integer(4) {
		t.Errorf("wrong /Size: %s", Format(trailer["Size"]))
	}
	// keys absent from the newest trailer are inherited from older ones
	if trailer["Info"] != NewReference(2, 0) {
		t.Errorf("wrong /Info: %s", Format(trailer["Info"]))
	}
}

// A /Root entry missing from the newest trailer is inherited from an older
// section of the /Prev chain.
func TestReadXRefTrailerInheritance(t *testing.T) {
	buf := []byte("%PDF-1.7\n")
	oldStart := int64(len(buf))
	buf = append(buf, []byte(`xref
0 2
0000000000 65535 f
0000000100 00000 n
trailer
<< /Size 2 /Root 1 0 R /ID [(aa) (aa)] >>
`)...)
	newStart := int64(len(buf))
	buf = append(buf, []byte(fmt.Sprintf(`xref
2 1
0000000200 00000 n
trailer
<< /Size 3 /Prev %d >>
`, oldStart))...)

	_, trailer, err := readXRef(buf, newStart)
	if err != nil {
		t.Fatal(err)
	}
	if trailer["Root"] != NewReference(1, 0) {
		t.Errorf("wrong /Root: %s", Format(trailer["Root"]))
	}
	if _, ok := trailer["ID"].(Array); !ok {
		t.Errorf("wrong /ID: %s", Format(trailer["ID"]))
	}
	if trailer["Size"] != Integer(3) {
		t.Errorf("wrong /Size: %s", Format(trailer["Size"]))
	}
}

func TestReadXRefLoop(t *testing.T) {
	// the /Prev entry points back to the same section
	buf := []byte("%PDF-1.7\n")
	start := int64(len(buf))
	buf = append(buf, []byte(fmt.Sprintf(`xref
0 2
0000000000 65535 f
0000000100 00000 n
trailer
<< /Size 2 /Prev %d >>
`, start))...)
	_, _, err := readXRef(buf, start)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadXRefGenerationFix(t *testing.T) {
	buf := []byte(`xref
7 1
0000000100 65536 n
trailer
<< /Size 8 >>
`)
	xref, _, err := readXRef(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if xref[7].Generation != 65535 {
		t.Errorf("expected generation 65535, got %d", xref[7].Generation)
	}
}

// makeXRefStream assembles an uncompressed cross-reference stream.
func makeXRefStream(dict string, rows [][]byte) []byte {
	data := bytes.Join(rows, nil)
	return []byte(fmt.Sprintf(
		"5 0 obj\n<< /Type /XRef %s /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		dict, len(data), data))
}

func TestReadXRefStream(t *testing.T) {
	buf := makeXRefStream("/Size 4 /W [1 2 1]", [][]byte{
		{0, 0, 0, 0},   // free
		{1, 0, 100, 0}, // direct object at offset 100
		{2, 0, 7, 3},   // in object stream 7, index 3
		{1, 0, 200, 1}, // direct object, generation 1
	})
	xref, trailer, err := readXRef(buf, 0)
	if err != nil {
		t.Fatal(err)
	}

	if !xref[0].IsFree() {
		t.Errorf("entry 0: got %+v", xref[0])
	}
	if xref[1].Pos != 100 || xref[1].Generation != 0 || xref[1].InStream != 0 {
		t.Errorf("entry 1: got %+v", xref[1])
	}
	if xref[2].InStream != NewReference(7, 0) || xref[2].Pos != 3 {
		t.Errorf("entry 2: got %+v", xref[2])
	}
	if xref[3].Pos != 200 || xref[3].Generation != 1 {
		t.Errorf("entry 3: got %+v", xref[3])
	}
	if trailer["Size"] != Integer(4) {
		t.Errorf("wrong /Size: %s", Format(trailer["Size"]))
	}
}

func TestReadXRefStreamIndex(t *testing.T) {
	buf := makeXRefStream("/Size 12 /Index [10 2] /W [1 1 1]", [][]byte{
		{1, 100, 0},
		{1, 200, 0},
	})
	xref, _, err := readXRef(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(xref) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(xref))
	}
	if xref[10].Pos != 100 || xref[11].Pos != 200 {
		t.Errorf("got %+v and %+v", xref[10], xref[11])
	}
}

// A zero-width type field defaults to type 1 entries.
func TestReadXRefStreamNoTypeField(t *testing.T) {
	buf := makeXRefStream("/Size 2 /W [0 2 1]", [][]byte{
		{0, 50, 0},
		{0, 99, 2},
	})
	xref, _, err := readXRef(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if xref[0].Pos != 50 || xref[1].Pos != 99 || xref[1].Generation != 2 {
		t.Errorf("got %+v and %+v", xref[0], xref[1])
	}
}

func TestReadXRefStreamTruncated(t *testing.T) {
	buf := makeXRefStream("/Size 4 /W [1 2 1]", [][]byte{
		{1, 0, 100, 0},
	})
	_, _, err := readXRef(buf, 0)
	if err == nil {
		t.Error("expected error for truncated xref stream data")
	}
}

func TestReadXRefStreamBadDict(t *testing.T) {
	cases := []string{
		"/W [1 2 1]",                    // missing /Size
		"/Size 4",                       // missing /W
		"/Size 4 /W [1 2]",              // too few /W entries
		"/Size 4 /W [1 9 1]",            // field too wide
		"/Size 4 /W [1 -1 1]",           // negative field width
		"/Size 4 /W [1 2 1] /Index [0]", // odd /Index length
	}
	for _, dict := range cases {
		buf := makeXRefStream(dict, [][]byte{{1, 0, 100, 0}})
		_, _, err := readXRef(buf, 0)
		if err == nil {
			t.Errorf("%s: expected error", dict)
		}
	}
}

// In a hybrid-reference file the stream named by /XRefStm supplements the
// classic table, with the table taking precedence.
func TestReadXRefHybrid(t *testing.T) {
	stm := makeXRefStream("/Size 3 /W [1 2 1]", [][]byte{
		{0, 0, 0, 0},
		{1, 0, 99, 0}, // shadowed by the table entry below
		{1, 0, 150, 0},
	})
	buf := append([]byte{}, stm...)
	tableStart := int64(len(buf))
	buf = append(buf, []byte(`xref
0 2
0000000000 65535 f
0000000100 00000 n
trailer
<< /Size 3 /XRefStm 0 >>
`)...)

	xref, _, err := readXRef(buf, tableStart)
	if err != nil {
		t.Fatal(err)
	}
	if xref[1].Pos != 100 {
		t.Errorf("table entry must win, got %+v", xref[1])
	}
	if xref[2].Pos != 150 {
		t.Errorf("stream-only entry must be visible, got %+v", xref[2])
	}
}

func TestReadXRefBadStart(t *testing.T) {
	buf := []byte("xref\n0 1\n0000000000 65535 f \ntrailer\n<< /Size 1 >>\n")
	for _, start := range []int64{-1, int64(len(buf)), int64(len(buf)) + 100} {
		_, _, err := readXRef(buf, start)
		if err == nil {
			t.Errorf("start=%d: expected error", start)
		}
	}
}
