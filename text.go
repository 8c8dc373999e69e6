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
	"golang.org/x/text/encoding/unicode"
)

// AsTextString interprets x as a PDF "text string" and returns the
// corresponding utf-8 encoded string.  Strings starting with a UTF-16BE
// byte order mark are decoded as UTF-16, everything else as PDFDocEncoding.
func (x String) AsTextString() string {
	if len(x) >= 2 && x[0] == 0xFE && x[1] == 0xFF {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		s, err := dec.Bytes([]byte(x))
		if err == nil {
			return string(s)
		}
		// fall through and try PDFDocEncoding on damaged input
	}
	return pdfDocDecode(x)
}

func pdfDocDecode(s String) string {
	// fast path: pure ASCII needs no re-encoding
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 || pdfDocRunes[s[i]] != rune(s[i]) {
			goto Decode
		}
	}
	return string(s)

Decode:
	r := make([]rune, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := pdfDocRunes[s[i]]
		if c == noRune {
			continue
		}
		r = append(r, c)
	}
	return string(r)
}

const noRune = '�'

// pdfDocRunes maps PDFDocEncoding code points to runes.  The encoding
// agrees with Latin-1 except for the ranges 0x18-0x1F and 0x7F-0xA0
// (table D.2 of ISO 32000-1:2008).
var pdfDocRunes = [256]rune{}

func init() {
	for i := range pdfDocRunes {
		pdfDocRunes[i] = rune(i)
	}
	special := map[byte]rune{
		0x18: '˘', // breve
		0x19: 'ˇ', // caron
		0x1A: 'ˆ', // circumflex
		0x1B: '˙', // dot accent
		0x1C: '˝', // double acute
		0x1D: '˛', // ogonek
		0x1E: '˚', // ring
		0x1F: '˜', // tilde
		0x7F: noRune,
		0x80: '•', // bullet
		0x81: '†', // dagger
		0x82: '‡', // double dagger
		0x83: '…', // ellipsis
		0x84: '—', // em dash
		0x85: '–', // en dash
		0x86: 'ƒ', // florin
		0x87: '⁄', // fraction slash
		0x88: '‹',
		0x89: '›',
		0x8A: '−', // minus
		0x8B: '‰', // per mille
		0x8C: '„',
		0x8D: '“',
		0x8E: '”',
		0x8F: '‘',
		0x90: '’',
		0x91: '‚',
		0x92: '™', // trademark
		0x93: 'ﬁ', // fi ligature
		0x94: 'ﬂ', // fl ligature
		0x95: 'Ł',
		0x96: 'Œ',
		0x97: 'Š',
		0x98: 'Ÿ',
		0x99: 'Ž',
		0x9A: 'ı',
		0x9B: 'ł',
		0x9C: 'œ',
		0x9D: 'š',
		0x9E: 'ž',
		0x9F: noRune,
		0xA0: '€', // euro
	}
	for c, r := range special {
		pdfDocRunes[c] = r
	}
}

// pdfDocEncode converts a string to PDFDocEncoding.  The second return
// value is false if the string contains runes outside the encoding.
func pdfDocEncode(s string) ([]byte, bool) {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 0x80 && pdfDocRunes[r] == r {
			buf = append(buf, byte(r))
			continue
		}
		found := false
		for c := 0; c < 256; c++ {
			if pdfDocRunes[c] == r {
				buf = append(buf, byte(c))
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return buf, true
}
