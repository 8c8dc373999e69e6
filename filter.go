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
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"
)

// Decode applies the stream's /Filter chain to its raw contents and
// returns the decoded bytes.  The resolve callback is used for indirect
// /Filter and /DecodeParms entries; it may be nil, in which case only
// direct entries are supported.
func (x *Stream) Decode(resolve func(Object) (Object, error)) ([]byte, error) {
	return decodeStream(x, resolve)
}

// decodeStream applies the stream's /Filter chain to its raw contents and
// returns the decoded bytes.  The resolve callback is used for indirect
// /Filter and /DecodeParms entries; it may be nil, in which case only
// direct entries are supported.
func decodeStream(x *Stream, resolve func(Object) (Object, error)) ([]byte, error) {
	if resolve == nil {
		resolve = func(obj Object) (Object, error) { return obj, nil }
	}

	filterObj, err := resolve(x.Dict["Filter"])
	if err != nil {
		return nil, err
	}
	parmsObj, err := resolve(x.Dict["DecodeParms"])
	if err != nil {
		return nil, err
	}

	var filters []Object
	switch f := filterObj.(type) {
	case nil:
		return x.Raw, nil
	case Name:
		filters = []Object{f}
	case Array:
		filters = f
	default:
		return nil, fmt.Errorf("invalid /Filter entry %s", Format(filterObj))
	}

	var parms []Object
	switch p := parmsObj.(type) {
	case nil:
		// pass
	case Array:
		parms = p
	default:
		parms = []Object{p}
	}

	data := x.Raw
	for i, name := range filters {
		name, err := resolve(name)
		if err != nil {
			return nil, err
		}
		var parm Object
		if i < len(parms) {
			parm, err = resolve(parms[i])
			if err != nil {
				return nil, err
			}
		}
		r := applyFilter(bytes.NewReader(data), name, parm)
		data, err = io.ReadAll(r)
		if err != nil {
			return nil, wrap(err, "stream decode")
		}
	}
	return data, nil
}

func applyFilter(r io.Reader, name Object, param Object) io.Reader {
	n, ok := name.(Name)
	if !ok {
		return &errorReader{
			fmt.Errorf("invalid filter description %s", Format(name))}
	}

	switch string(n) {
	case "FlateDecode", "Fl":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return &errorReader{err}
		}
		return withPredictor(zr, param)
	case "LZWDecode", "LZW":
		body, err := io.ReadAll(r)
		if err != nil {
			return &errorReader{err}
		}
		params := filterParams(param)
		out, err := lzwDecode(body, params["EarlyChange"] != 0)
		if err != nil {
			return &errorReader{err}
		}
		return withPredictor(bytes.NewReader(out), param)
	case "ASCIIHexDecode", "AHx":
		return &hexReader{r: r, hi: -1}
	case "ASCII85Decode", "A85":
		body, err := io.ReadAll(r)
		if err != nil {
			return &errorReader{err}
		}
		if idx := bytes.IndexByte(body, '~'); idx >= 0 {
			body = body[:idx]
		}
		return ascii85.NewDecoder(bytes.NewReader(body))
	case "RunLengthDecode", "RL":
		return &runLengthReader{r: r}
	default:
		return &errorReader{fmt.Errorf("unsupported filter %q", n)}
	}
}

func filterParams(param Object) map[string]int {
	params := map[string]int{
		"Predictor":        1,
		"Colors":           1,
		"BitsPerComponent": 8,
		"Columns":          1,
		"EarlyChange":      1,
	}
	if pDict, ok := param.(Dict); ok {
		for key := range params {
			if val, ok := pDict[Name(key)].(Integer); ok {
				params[key] = int(val)
			}
		}
	}
	return params
}

func withPredictor(r io.Reader, param Object) io.Reader {
	params := filterParams(param)
	pred := params["Predictor"]
	switch {
	case pred == 1:
		return r
	case pred == 2:
		if params["BitsPerComponent"] != 8 {
			return &errorReader{fmt.Errorf(
				"TIFF predictor with %d bits per component not supported",
				params["BitsPerComponent"])}
		}
		return &tiffPredReader{
			r:      r,
			row:    make([]byte, params["Columns"]*params["Colors"]),
			colors: params["Colors"],
		}
	case pred >= 10 && pred <= 15:
		bpp := (params["Colors"]*params["BitsPerComponent"] + 7) / 8
		if bpp < 1 {
			bpp = 1
		}
		rowLen := (params["Columns"]*params["Colors"]*params["BitsPerComponent"] + 7) / 8
		return &pngPredReader{
			r:    r,
			prev: make([]byte, rowLen),
			tmp:  make([]byte, 1+rowLen),
			bpp:  bpp,
		}
	default:
		return &errorReader{fmt.Errorf("unsupported predictor %d", pred)}
	}
}

// lzwDecode decompresses LZWDecode data: MSB-first codes of 9 to 12 bits,
// code 256 clearing the table and code 257 marking the end of data.  With
// earlyChange set, the code width grows one code earlier than the table
// size alone would require; this is the file format's default.
func lzwDecode(src []byte, earlyChange bool) ([]byte, error) {
	const (
		clearCode = 256
		eodCode   = 257
		maxCode   = 4096
	)

	table := make([][]byte, 258, maxCode)
	for i := 0; i < 256; i++ {
		table[i] = []byte{byte(i)}
	}
	width := 9

	var out []byte
	var prev []byte
	pos := 0 // bit position in src
	for {
		if pos+width > 8*len(src) {
			// missing EOD marker, tolerated
			return out, nil
		}
		code := 0
		for i := 0; i < width; i++ {
			code = code<<1 | int(src[pos>>3]>>(7-pos&7))&1
			pos++
		}

		if code == eodCode {
			return out, nil
		}
		if code == clearCode {
			table = table[:258]
			width = 9
			prev = nil
			continue
		}

		var seq []byte
		switch {
		case code < len(table) && table[code] != nil:
			seq = table[code]
		case code == len(table) && prev != nil:
			seq = make([]byte, len(prev)+1)
			copy(seq, prev)
			seq[len(prev)] = prev[0]
		default:
			return nil, fmt.Errorf("invalid code %d in LZWDecode data", code)
		}
		out = append(out, seq...)

		if prev != nil && len(table) < maxCode {
			entry := make([]byte, len(prev)+1)
			copy(entry, prev)
			entry[len(prev)] = seq[0]
			table = append(table, entry)

			limit := len(table)
			if earlyChange {
				limit++
			}
			if limit >= 1<<width && width < 12 {
				width++
			}
		}
		prev = seq
	}
}

// pngPredReader undoes the PNG row filters (types 0 to 4) applied before
// compression.  Each input row starts with a filter type byte.
type pngPredReader struct {
	r    io.Reader
	prev []byte
	tmp  []byte
	pend []byte
	bpp  int
}

func (r *pngPredReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}
		_, err := io.ReadFull(r.r, r.tmp)
		if err != nil {
			return n, err
		}
		row := r.tmp[1:]
		switch r.tmp[0] {
		case 0: // None
			// pass
		case 1: // Sub
			for i := r.bpp; i < len(row); i++ {
				row[i] += row[i-r.bpp]
			}
		case 2: // Up
			for i := range row {
				row[i] += r.prev[i]
			}
		case 3: // Average
			for i := range row {
				var left int
				if i >= r.bpp {
					left = int(row[i-r.bpp])
				}
				row[i] += byte((left + int(r.prev[i])) / 2)
			}
		case 4: // Paeth
			for i := range row {
				var left, upLeft byte
				if i >= r.bpp {
					left = row[i-r.bpp]
					upLeft = r.prev[i-r.bpp]
				}
				row[i] += paeth(left, r.prev[i], upLeft)
			}
		default:
			return n, fmt.Errorf("malformed PNG predictor data (filter type %d)", r.tmp[0])
		}
		copy(r.prev, row)
		r.pend = row
	}
	return n, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// tiffPredReader undoes TIFF predictor 2 for 8-bit components.
type tiffPredReader struct {
	r      io.Reader
	row    []byte
	pend   []byte
	colors int
}

func (r *tiffPredReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}
		_, err := io.ReadFull(r.r, r.row)
		if err != nil {
			return n, err
		}
		for i := r.colors; i < len(r.row); i++ {
			r.row[i] += r.row[i-r.colors]
		}
		r.pend = r.row
	}
	return n, nil
}

// hexReader decodes ASCIIHexDecode data: hex digits with interspersed white
// space, terminated by ">".  An odd final digit is padded with zero.
type hexReader struct {
	r    io.Reader
	done bool
	hi   int
	buf  [512]byte
	pend []byte
}

func (r *hexReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}
		if r.done {
			return n, io.EOF
		}
		k, err := r.r.Read(r.buf[:])
		out := make([]byte, 0, k/2+1)
		for _, c := range r.buf[:k] {
			if c == '>' {
				r.done = true
				break
			}
			if isSpace[c] {
				continue
			}
			d := hexDigit(c)
			if d < 0 {
				return n, fmt.Errorf("invalid byte %q in ASCIIHexDecode data", c)
			}
			if r.hi < 0 {
				r.hi = d
			} else {
				out = append(out, byte(r.hi<<4|d))
				r.hi = -1
			}
		}
		if err == io.EOF {
			r.done = true
			err = nil
		}
		if r.done && r.hi >= 0 {
			out = append(out, byte(r.hi<<4))
			r.hi = -1
		}
		if err != nil {
			return n, err
		}
		r.pend = out
		if len(out) == 0 && r.done {
			return n, io.EOF
		}
	}
	return n, nil
}

// runLengthReader decodes RunLengthDecode data.
type runLengthReader struct {
	r    io.Reader
	done bool
	pend []byte
}

func (r *runLengthReader) Read(b []byte) (int, error) {
	n := 0
	var lb [1]byte
	for len(b) > 0 {
		if len(r.pend) > 0 {
			m := copy(b, r.pend)
			n += m
			b = b[m:]
			r.pend = r.pend[m:]
			continue
		}
		if r.done {
			return n, io.EOF
		}
		_, err := io.ReadFull(r.r, lb[:])
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			// missing EOD marker, tolerated
			r.done = true
			return n, io.EOF
		} else if err != nil {
			return n, err
		}
		switch l := lb[0]; {
		case l == 128:
			r.done = true
		case l < 128:
			run := make([]byte, int(l)+1)
			_, err := io.ReadFull(r.r, run)
			if err != nil {
				return n, err
			}
			r.pend = run
		default:
			_, err := io.ReadFull(r.r, lb[:])
			if err != nil {
				return n, err
			}
			r.pend = bytes.Repeat(lb[:], 257-int(l))
		}
	}
	return n, nil
}

type errorReader struct {
	err error
}

func (r *errorReader) Read([]byte) (int, error) {
	return 0, r.err
}
