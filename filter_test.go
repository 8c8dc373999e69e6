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
	"compress/lzw"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"testing"
)

func deflate(data []byte) []byte {
	buf := &bytes.Buffer{}
	w := zlib.NewWriter(buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func TestDecodeFlate(t *testing.T) {
	plain := []byte("Hello, world!  This text should survive a round trip.")
	stream := &Stream{
		Dict: Dict{"Filter": Name("FlateDecode")},
		Raw:  deflate(plain),
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, plain) {
		t.Errorf("expected %q but got %q", plain, out)
	}
}

func TestDecodeFlatePNGUp(t *testing.T) {
	// two rows of four columns
	rows := [][]byte{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}

	// apply the Up filter: each row stores the difference to the row above
	var encoded []byte
	prev := []byte{0, 0, 0, 0}
	for _, row := range rows {
		encoded = append(encoded, 2) // filter type Up
		for i, b := range row {
			encoded = append(encoded, b-prev[i])
		}
		prev = row
	}

	stream := &Stream{
		Dict: Dict{
			"Filter": Name("FlateDecode"),
			"DecodeParms": Dict{
				"Predictor": Integer(12),
				"Columns":   Integer(4),
			},
		},
		Raw: deflate(encoded),
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(out, want) {
		t.Errorf("expected % d but got % d", want, out)
	}
}

func TestDecodeFlateTIFFPredictor(t *testing.T) {
	rows := [][]byte{
		{10, 20, 30},
		{11, 21, 31},
	}
	var encoded []byte
	for _, row := range rows {
		encoded = append(encoded, row[0])
		for i := 1; i < len(row); i++ {
			encoded = append(encoded, row[i]-row[i-1])
		}
	}

	stream := &Stream{
		Dict: Dict{
			"Filter": Name("FlateDecode"),
			"DecodeParms": Dict{
				"Predictor": Integer(2),
				"Columns":   Integer(3),
			},
		},
		Raw: deflate(encoded),
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{10, 20, 30, 11, 21, 31}
	if !bytes.Equal(out, want) {
		t.Errorf("expected % d but got % d", want, out)
	}
}

func TestDecodeLZW(t *testing.T) {
	plain := []byte("to be or not to be or to be or not")
	buf := &bytes.Buffer{}
	w := lzw.NewWriter(buf, lzw.MSB, 8)
	w.Write(plain)
	w.Close()

	stream := &Stream{
		Dict: Dict{
			"Filter":      Name("LZWDecode"),
			"DecodeParms": Dict{"EarlyChange": Integer(0)},
		},
		Raw: buf.Bytes(),
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, plain) {
		t.Errorf("expected %q but got %q", plain, out)
	}
}

// Example 2 from section 7.4.4.2 of PDF 32000-1:2008.  Without
// /DecodeParms the filter must use early change, the file format's
// default.
func TestDecodeLZWDefaultParams(t *testing.T) {
	raw := []byte{0x80, 0x0B, 0x60, 0x50, 0x22, 0x0C, 0x0C, 0x85, 0x01}
	want := []byte{45, 45, 45, 45, 45, 65, 45, 45, 45, 66}

	stream := &Stream{
		Dict: Dict{"Filter": Name("LZWDecode")},
		Raw:  raw,
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, want) {
		t.Errorf("expected % d but got % d", want, out)
	}
}

// 300 literal codes push the table across the 9-to-10 bit code width
// boundary, which early change crosses one code sooner than the
// EarlyChange 0 variant.
func TestDecodeLZWEarlyChange(t *testing.T) {
	var plain []byte
	for i := 0; i < 300; i++ {
		plain = append(plain, byte(i%251))
	}

	var raw []byte
	acc, nbits := 0, 0
	emit := func(code, width int) {
		acc = acc<<width | code
		nbits += width
		for nbits >= 8 {
			raw = append(raw, byte(acc>>(nbits-8)))
			nbits -= 8
		}
	}
	width := 9
	emit(256, width) // clear table
	tableLen := 258
	for i, b := range plain {
		emit(int(b), width)
		if i == 0 {
			continue
		}
		tableLen++
		if tableLen+1 >= 1<<width && width < 12 {
			width++
		}
	}
	emit(257, width) // EOD
	if nbits > 0 {
		raw = append(raw, byte(acc<<(8-nbits)))
	}

	stream := &Stream{
		Dict: Dict{"Filter": Name("LZWDecode")},
		Raw:  raw,
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, plain) {
		t.Errorf("output differs from input after the width change")
	}
}

func TestDecodeASCIIHex(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"48656c6c6f>", "Hello"},
		{"48 65 6C\n6C 6F>", "Hello"},
		{"48656c7>", "Help"},    // odd digit padded
		{"48656c6c6f", "Hello"}, // missing EOD tolerated
	}
	for _, test := range cases {
		stream := &Stream{
			Dict: Dict{"Filter": Name("ASCIIHexDecode")},
			Raw:  []byte(test.in),
		}
		out, err := stream.Decode(nil)
		if err != nil {
			t.Errorf("%q: unexpected error %s", test.in, err)
			continue
		}
		if string(out) != test.out {
			t.Errorf("%q: expected %q but got %q", test.in, test.out, out)
		}
	}
}

func TestDecodeASCII85(t *testing.T) {
	plain := []byte("some test data for the ascii85 filter")
	enc := make([]byte, ascii85.MaxEncodedLen(len(plain)))
	n := ascii85.Encode(enc, plain)
	raw := append(enc[:n], '~', '>')

	stream := &Stream{
		Dict: Dict{"Filter": Name("ASCII85Decode")},
		Raw:  raw,
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, plain) {
		t.Errorf("expected %q but got %q", plain, out)
	}
}

func TestDecodeRunLength(t *testing.T) {
	raw := []byte{
		2, 'a', 'b', 'c', // copy the next 3 bytes
		254, 'x', // repeat 'x' 3 times
		0, 'q', // copy 1 byte
		128, // EOD
	}
	stream := &Stream{
		Dict: Dict{"Filter": Name("RunLengthDecode")},
		Raw:  raw,
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "abcxxxq" {
		t.Errorf("expected %q but got %q", "abcxxxq", out)
	}
}

func TestDecodeFilterChain(t *testing.T) {
	plain := []byte("chained filters")
	hexed := []byte(hex.EncodeToString(deflate(plain)) + ">")

	stream := &Stream{
		Dict: Dict{
			"Filter": Array{Name("ASCIIHexDecode"), Name("FlateDecode")},
		},
		Raw: hexed,
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, plain) {
		t.Errorf("expected %q but got %q", plain, out)
	}
}

func TestDecodeNoFilter(t *testing.T) {
	stream := &Stream{
		Dict: Dict{},
		Raw:  []byte("raw data"),
	}
	out, err := stream.Decode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "raw data" {
		t.Errorf("got %q", out)
	}
}

func TestDecodeIndirectFilter(t *testing.T) {
	resolve := func(obj Object) (Object, error) {
		if obj == NewReference(7, 0) {
			return Name("FlateDecode"), nil
		}
		return obj, nil
	}
	stream := &Stream{
		Dict: Dict{"Filter": NewReference(7, 0)},
		Raw:  deflate([]byte("indirect")),
	}
	out, err := stream.Decode(resolve)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "indirect" {
		t.Errorf("got %q", out)
	}
}

func TestDecodeUnknownFilter(t *testing.T) {
	stream := &Stream{
		Dict: Dict{"Filter": Name("BogusDecode")},
		Raw:  []byte("data"),
	}
	_, err := stream.Decode(nil)
	if err == nil {
		t.Error("expected error for unknown filter")
	}
}
