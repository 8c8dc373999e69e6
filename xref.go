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
	"errors"
	"fmt"
	"io"
	"math"
)

// xRefEntry describes where one indirect object lives.
//
// For objects stored directly in the file, Pos is the byte offset of the
// object definition and Generation its generation number.  For free
// objects, Pos is -1.  For objects stored inside an object stream,
// InStream is the reference of the containing stream and Pos the index of
// the object within it.
type xRefEntry struct {
	Pos        int64
	Generation uint16
	InStream   Reference
}

func (entry *xRefEntry) IsFree() bool {
	return entry == nil || entry.InStream == 0 && entry.Pos < 0
}

// startXRefWindow is how far before the end of the file the startxref
// keyword is searched for.  The file format requires the keyword within
// the last 1024 bytes; we allow some slack for trailing garbage.
const startXRefWindow = 2048

// findStartXRef locates the last startxref keyword near the end of the
// buffer and returns the cross-reference offset it announces.
func findStartXRef(buf []byte) (int64, error) {
	tail := buf
	base := 0
	if len(tail) > startXRefWindow {
		base = len(tail) - startXRefWindow
		tail = tail[base:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx < 0 {
		return 0, &MalformedFileError{
			Err: errors.New("startxref not found"),
		}
	}

	tok, err := newTokenizer(buf, int64(base+idx+9)).Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TokenInteger || tok.Int <= 0 || tok.Int >= int64(len(buf)) {
		return 0, &MalformedFileError{
			Pos: tok.Pos,
			Err: errors.New("invalid startxref position"),
		}
	}
	return tok.Int, nil
}

// readXRef loads the complete cross-reference index, following the chain
// of /Prev sections from newest to oldest.  Where sections disagree about
// an object, the section seen first wins, so later updates shadow the
// original entries.  The returned trailer dictionary takes each document
// key from the newest section which carries it, so a key missing from the
// newest trailer is inherited from an older one.
func readXRef(buf []byte, start int64) (map[uint32]*xRefEntry, Dict, error) {
	xref := make(map[uint32]*xRefEntry)
	trailer := Dict{}
	seen := make(map[int64]bool)
	for {
		// avoid xref loops
		if seen[start] {
			break
		}
		seen[start] = true

		if start < 0 || start >= int64(len(buf)) {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: errors.New("cross-reference offset outside file"),
			}
		}

		tok, err := newTokenizer(buf, start).Peek()
		if err != nil {
			return nil, nil, err
		}
		var dict Dict
		if tok.Kind == TokenKeyword && string(tok.Raw) == "xref" {
			dict, err = readXRefTable(xref, buf, start)
			if err != nil {
				return nil, nil, err
			}

			// hybrid-reference file: the xref stream named by /XRefStm
			// takes precedence over this table's /Prev chain
			if xRefStm, ok := dict["XRefStm"]; ok {
				zStart, ok := xRefStm.(Integer)
				if !ok {
					return nil, nil, &MalformedFileError{
						Pos: start,
						Err: errors.New("wrong type for /XRefStm (expected integer)"),
					}
				}
				_, err = readXRefStream(xref, buf, int64(zStart))
				if err != nil {
					return nil, nil, err
				}
			}
		} else {
			dict, err = readXRefStream(xref, buf, start)
			if err != nil {
				return nil, nil, err
			}
		}

		for _, key := range []Name{"Root", "Encrypt", "Info", "ID", "Size"} {
			if _, done := trailer[key]; done {
				continue
			}
			if val, ok := dict[key]; ok {
				trailer[key] = val
			}
		}

		prev := dict["Prev"]
		if prev == nil {
			break
		}
		prevStart, ok := prev.(Integer)
		if !ok || prevStart <= 0 || int64(prevStart) >= int64(len(buf)) {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: fmt.Errorf("invalid /Prev value %s", Format(prev)),
			}
		}
		start = int64(prevStart)
	}

	return xref, trailer, nil
}

// readXRefTable reads a classic cross-reference table at the given offset,
// followed by the trailer dictionary.
func readXRefTable(xref map[uint32]*xRefEntry, buf []byte, start int64) (Dict, error) {
	p := newParser(buf, start, nil)
	err := p.expectKeyword("xref")
	if err != nil {
		return nil, err
	}

	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != TokenInteger {
			break
		}

		first, err := p.readUint(math.MaxUint32, "first object number")
		if err != nil {
			return nil, err
		}
		count, err := p.readUint(math.MaxUint32, "entry count")
		if err != nil {
			return nil, err
		}
		if first+count > math.MaxUint32+1 {
			return nil, &MalformedFileError{
				Pos: tok.Pos,
				Err: errors.New("invalid xref subsection header"),
			}
		}

		err = readXRefSection(xref, p, uint32(first), count)
		if err != nil {
			return nil, err
		}
	}

	err = p.expectKeyword("trailer")
	if err != nil {
		return nil, err
	}
	obj, err := p.ReadObject()
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(Dict)
	if !ok {
		return nil, &MalformedFileError{
			Pos: p.tok.Pos(),
			Err: errors.New("trailer is not a dictionary"),
		}
	}
	return dict, nil
}

// readXRefSection reads count 20-byte entries of one subsection.  The
// entries are tokenized rather than sliced at fixed offsets, which also
// accepts the 19-byte rows some writers produce.
func readXRefSection(xref map[uint32]*xRefEntry, p *parser, first uint32, count int64) error {
	for i := int64(0); i < count; i++ {
		num := first + uint32(i)

		offset, err := p.readUint(math.MaxInt64, "xref entry offset")
		if err != nil {
			return err
		}
		generation, err := p.readUint(math.MaxInt64, "xref entry generation")
		if err != nil {
			return err
		}
		// fix a common off-by-one in broken files
		if generation == 65536 {
			generation = 65535
		}
		if generation > math.MaxUint16 {
			return &MalformedFileError{
				Pos: p.tok.Pos(),
				Err: fmt.Errorf("invalid generation number %d", generation),
			}
		}

		tok, err := p.tok.Next()
		if err != nil {
			return err
		}
		if tok.Kind != TokenKeyword {
			return unexpectedToken(tok, `"n" or "f"`)
		}

		var entry *xRefEntry
		switch string(tok.Raw) {
		case "n":
			entry = &xRefEntry{
				Pos:        offset,
				Generation: uint16(generation),
			}
		case "f":
			entry = &xRefEntry{
				Pos:        -1,
				Generation: uint16(generation),
			}
		default:
			return unexpectedToken(tok, `"n" or "f"`)
		}

		if xref[num] == nil {
			xref[num] = entry
		}
	}
	return nil
}

// readXRefStream reads a cross-reference stream at the given offset.
func readXRefStream(xref map[uint32]*xRefEntry, buf []byte, start int64) (Dict, error) {
	p := newParser(buf, start, nil)
	_, obj, err := p.ReadIndirectObject()
	if err != nil && !errors.Is(err, ErrMissingEndobj) {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, &MalformedFileError{
			Pos: start,
			Err: errors.New("invalid xref stream"),
		}
	}
	dict := stream.Dict

	w, ss, err := checkXRefStreamDict(dict)
	if err != nil {
		return nil, err
	}
	data, err := decodeStream(stream, nil)
	if err != nil {
		return nil, err
	}
	err = decodeXRefStream(xref, bytes.NewReader(data), w, ss)
	if err != nil {
		return nil, err
	}

	return dict, nil
}

func checkXRefStreamDict(dict Dict) ([]int, []*xRefSubSection, error) {
	size, ok := dict["Size"].(Integer)
	if !ok || size < 0 {
		return nil, nil, &MalformedFileError{
			Err: errors.New("xref stream without usable /Size"),
		}
	}
	W, ok := dict["W"].(Array)
	if !ok || len(W) < 3 {
		return nil, nil, &MalformedFileError{
			Err: errors.New("xref stream without usable /W"),
		}
	}
	var w []int
	for i, Wi := range W {
		wi, ok := Wi.(Integer)
		if !ok || i < 3 && (wi < 0 || wi > 8) {
			return nil, nil, &MalformedFileError{
				Err: errors.New("invalid /W entry in xref stream"),
			}
		}
		w = append(w, int(wi))
	}

	Index := dict["Index"]
	var ss []*xRefSubSection
	if Index == nil {
		ss = append(ss, &xRefSubSection{0, int64(size)})
	} else {
		ind, ok := Index.(Array)
		if !ok || len(ind)%2 != 0 {
			return nil, nil, &MalformedFileError{
				Err: errors.New("invalid /Index entry in xref stream"),
			}
		}
		for i := 0; i < len(ind); i += 2 {
			start, ok1 := ind[i].(Integer)
			count, ok2 := ind[i+1].(Integer)
			if !ok1 || !ok2 || start < 0 || count < 0 ||
				int64(start)+int64(count) > math.MaxUint32+1 {
				return nil, nil, &MalformedFileError{
					Err: errors.New("invalid /Index entry in xref stream"),
				}
			}
			ss = append(ss, &xRefSubSection{int64(start), int64(count)})
		}
	}
	return w, ss, nil
}

func decodeXRefStream(xref map[uint32]*xRefEntry, r io.Reader, w []int, ss []*xRefSubSection) error {
	wTotal := 0
	for _, wi := range w {
		wTotal += wi
	}
	buf := make([]byte, wTotal)

	w0 := w[0]
	w1 := w[1]
	w2 := w[2]
	for _, sec := range ss {
		for i := int64(0); i < sec.Count; i++ {
			_, err := io.ReadFull(r, buf)
			if err != nil {
				return &MalformedFileError{
					Err: wrap(err, "truncated xref stream data"),
				}
			}

			num := uint32(sec.Start + i)
			if xref[num] != nil {
				continue
			}

			tp := decodeXRefInt(buf[:w0])
			if w0 == 0 {
				// the type field defaults to 1
				tp = 1
			}
			a := decodeXRefInt(buf[w0 : w0+w1])
			b := decodeXRefInt(buf[w0+w1 : w0+w1+w2])
			switch tp {
			case 0:
				// free object
				// a = next free object, b = generation for reuse
				xref[num] = &xRefEntry{
					Pos:        -1,
					Generation: uint16(b),
				}
			case 1:
				// used object, stored directly
				// a = byte offset, b = generation number
				xref[num] = &xRefEntry{
					Pos:        a,
					Generation: uint16(b),
				}
			case 2:
				// used object, stored in an object stream
				// a = number of the object stream, b = index within it
				if a > math.MaxUint32 {
					continue
				}
				xref[num] = &xRefEntry{
					Pos:      b,
					InStream: NewReference(uint32(a), 0),
				}
			default:
				// reserved entry types refer to the null object
			}
		}
	}
	return nil
}

func decodeXRefInt(buf []byte) (res int64) {
	for _, x := range buf {
		res = res<<8 | int64(x)
	}
	return res
}

type xRefSubSection struct {
	Start, Count int64
}
