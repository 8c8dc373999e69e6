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
	"errors"
	"regexp"
	"strconv"

	"golang.org/x/exp/slices"
)

var (
	whiteSpacePat = `[\000\011\014 ]+`
	objectPat     = `([0-9]{1,10})` + whiteSpacePat + `([0-9]{1,5})` + whiteSpacePat + `obj\b`
	objectRegexp  = regexp.MustCompile(`(?:^|[\r\n\000\011\014 ])` + objectPat)
	trailerRegexp = regexp.MustCompile(`(?:^|[\r\n\000\011\014 ])trailer\b`)
)

// scavengeXRef rebuilds the cross-reference index of a damaged file by
// scanning the whole buffer for "N G obj" headers.  Where an object number
// is defined more than once, the definition closest to the end of the file
// wins, mirroring the shadowing order of incremental updates.
//
// The trailer dictionary is reassembled from the trailer keywords found in
// the buffer, newest first.  If no /Root entry turns up this way, the scan
// falls back to looking for an object with /Type /Catalog.
func scavengeXRef(buf []byte) (map[uint32]*xRefEntry, Dict, error) {
	xref := make(map[uint32]*xRefEntry)

	for _, m := range objectRegexp.FindAllSubmatchIndex(buf, -1) {
		number, err := strconv.ParseUint(string(buf[m[2]:m[3]]), 10, 32)
		if err != nil {
			continue
		}
		generation, err := strconv.ParseUint(string(buf[m[4]:m[5]]), 10, 16)
		if err != nil {
			continue
		}
		xref[uint32(number)] = &xRefEntry{
			Pos:        int64(m[2]),
			Generation: uint16(generation),
		}
	}
	if len(xref) == 0 {
		return nil, nil, &MalformedFileError{Err: ErrNoObjects}
	}

	trailer := scavengeTrailer(buf)

	catalog, objStms := inspectScavenged(buf, xref)
	if _, ok := trailer["Root"]; !ok && catalog != 0 {
		trailer["Root"] = catalog
	}

	// objects hidden in object streams, unless a plain-text definition
	// already covers the number; containers closer to the end of the
	// file shadow earlier ones
	slices.SortFunc(objStms, func(a, b Reference) int {
		ea, eb := xref[a.Number()], xref[b.Number()]
		return int(ea.Pos - eb.Pos)
	})
	for _, container := range objStms {
		entry := xref[container.Number()]
		if entry == nil || entry.IsFree() || entry.InStream != 0 {
			continue
		}
		nums, err := objStmIndex(buf, entry.Pos)
		if err != nil {
			continue
		}
		for idx, num := range nums {
			if prev, ok := xref[num]; ok && prev.InStream == 0 {
				continue
			}
			xref[num] = &xRefEntry{
				Pos:      int64(idx),
				InStream: container,
			}
		}
	}

	if _, ok := trailer["Size"]; !ok {
		maxNum := uint32(0)
		for num := range xref {
			if num > maxNum {
				maxNum = num
			}
		}
		trailer["Size"] = Integer(maxNum) + 1
	}

	return xref, trailer, nil
}

// scavengeTrailer collects the trailer dictionaries in the buffer and
// merges their document keys, with entries from later trailers shadowing
// earlier ones.
func scavengeTrailer(buf []byte) Dict {
	trailer := Dict{}
	matches := trailerRegexp.FindAllSubmatchIndex(buf, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		p := newParser(buf, int64(matches[i][1]), nil)
		obj, err := p.ReadObject()
		if err != nil {
			continue
		}
		dict, ok := obj.(Dict)
		if !ok {
			continue
		}
		for _, key := range []Name{"Root", "Encrypt", "Info", "ID", "Size"} {
			if _, have := trailer[key]; have {
				continue
			}
			if val, ok := dict[key]; ok {
				trailer[key] = val
			}
		}
	}
	return trailer
}

// inspectScavenged parses each recovered object once, looking for the
// document catalog and for object streams.  Objects which do not parse are
// left in the index; resolving them later reports the damage.
func inspectScavenged(buf []byte, xref map[uint32]*xRefEntry) (Reference, []Reference) {
	getInt := func(obj Object) (Integer, error) {
		if i, ok := obj.(Integer); ok {
			return i, nil
		}
		// force the endstream scan; stream extents do not matter here
		return 0, errors.New("indirect length")
	}

	var catalog Reference
	var catalogPos int64 = -1
	var catalogHasPages bool
	var objStms []Reference

	for num, entry := range xref {
		if entry.IsFree() || entry.InStream != 0 {
			continue
		}
		p := newParser(buf, entry.Pos, getInt)
		ref, obj, err := p.ReadIndirectObject()
		if err != nil && !errors.Is(err, ErrMissingEndobj) {
			continue
		}
		if ref.Number() != num {
			continue
		}

		switch o := obj.(type) {
		case Dict:
			if tp, ok := o["Type"].(Name); !ok || tp != "Catalog" {
				continue
			}
			_, hasPages := o["Pages"]
			if catalogPos < 0 ||
				hasPages && !catalogHasPages ||
				hasPages == catalogHasPages && entry.Pos > catalogPos {
				catalog = ref
				catalogPos = entry.Pos
				catalogHasPages = hasPages
			}
		case *Stream:
			if tp, ok := o.Dict["Type"].(Name); !ok || tp != "ObjStm" {
				continue
			}
			if _, hasFirst := o.Dict["First"]; hasFirst {
				objStms = append(objStms, ref)
			}
		}
	}
	return catalog, objStms
}

// objStmIndex decodes the object stream at pos and returns the object
// numbers it contains, in stream order.
func objStmIndex(buf []byte, pos int64) ([]uint32, error) {
	p := newParser(buf, pos, nil)
	_, obj, err := p.ReadIndirectObject()
	if err != nil && !errors.Is(err, ErrMissingEndobj) {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, &MalformedFileError{Pos: pos, Err: errors.New("not an object stream")}
	}
	n, ok := stream.Dict["N"].(Integer)
	if !ok || n < 0 {
		return nil, &MalformedFileError{Pos: pos, Err: errors.New("object stream without /N")}
	}

	data, err := stream.Decode(nil)
	if err != nil {
		return nil, err
	}

	tok := newTokenizer(data, 0)
	nums := make([]uint32, 0, n)
	for i := Integer(0); i < n; i++ {
		numTok, err := tok.Next()
		if err != nil {
			return nil, err
		}
		offTok, err := tok.Next()
		if err != nil {
			return nil, err
		}
		if numTok.Kind != TokenInteger || offTok.Kind != TokenInteger ||
			numTok.Int < 0 || numTok.Int > 0xFFFFFFFF {
			return nil, &MalformedFileError{
				Pos: pos,
				Err: errors.New("malformed object stream index"),
			}
		}
		nums = append(nums, uint32(numTok.Int))
	}
	return nums, nil
}
