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

// parser builds PDF objects from the token stream of a tokenizer.
//
// The getInt callback resolves the /Length entry of stream dictionaries
// when it is given as an indirect reference.  It may be nil, in which case
// the stream extent is found by scanning for the endstream keyword.
type parser struct {
	tok    *tokenizer
	getInt func(Object) (Integer, error)
}

func newParser(buf []byte, pos int64, getInt func(Object) (Integer, error)) *parser {
	return &parser{
		tok:    newTokenizer(buf, pos),
		getInt: getInt,
	}
}

// ReadObject reads the next object from the input.  The PDF null object is
// returned as a nil Object with a nil error.
func (p *parser) ReadObject() (Object, error) {
	tok, err := p.tok.Next()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case TokenInteger:
		return p.continueNumber(tok)
	case TokenReal:
		return Real(tok.Float), nil
	case TokenName:
		return Name(tok.Data), nil
	case TokenString, TokenHexString:
		return String(tok.Data), nil
	case TokenArrayOpen:
		return p.readArray()
	case TokenDictOpen:
		dict, err := p.readDict()
		if err != nil {
			return nil, err
		}
		return p.maybeStream(dict)
	case TokenKeyword:
		switch string(tok.Raw) {
		case "null":
			return nil, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, unexpectedToken(tok, "object")
	case TokenEOF:
		return nil, &MalformedFileError{
			Pos: tok.Pos,
			Err: io.ErrUnexpectedEOF,
		}
	default:
		return nil, unexpectedToken(tok, "object")
	}
}

// continueNumber decides whether an integer is a plain number or the start
// of an indirect reference "N G R", using two tokens of lookahead.
func (p *parser) continueNumber(first Token) (Object, error) {
	save := p.tok.Pos()

	second, err := p.tok.Next()
	if err == nil && second.Kind == TokenInteger {
		third, err := p.tok.Next()
		if err == nil && third.Kind == TokenKeyword && string(third.Raw) == "R" {
			if first.Int >= 0 && first.Int <= math.MaxUint32 &&
				second.Int >= 0 && second.Int <= math.MaxUint16 {
				return NewReference(uint32(first.Int), uint16(second.Int)), nil
			}
		}
	}

	p.tok.SetPos(save)
	return Integer(first.Int), nil
}

// readArray reads an array, starting after the opening "[".
func (p *parser) readArray() (Array, error) {
	var array Array
	for {
		tok, err := p.tok.Peek()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case TokenArrayClose:
			p.tok.Next()
			return array, nil
		case TokenEOF:
			return nil, &MalformedFileError{
				Pos: tok.Pos,
				Err: io.ErrUnexpectedEOF,
			}
		}

		obj, err := p.ReadObject()
		if err != nil {
			return nil, err
		}
		array = append(array, obj)
	}
}

// readDict reads a dictionary, starting after the opening "<<".
func (p *parser) readDict() (Dict, error) {
	dict := make(Dict)
	for {
		tok, err := p.tok.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case TokenDictClose:
			return dict, nil
		case TokenName:
			// pass
		case TokenEOF:
			return nil, &MalformedFileError{
				Pos: tok.Pos,
				Err: io.ErrUnexpectedEOF,
			}
		default:
			return nil, unexpectedToken(tok, "name or \">>\"")
		}

		val, err := p.ReadObject()
		if err != nil {
			return nil, err
		}
		dict[Name(tok.Data)] = val
	}
}

// maybeStream checks whether the dictionary just read is followed by the
// keyword "stream".  If so, the stream's raw contents are sliced from the
// buffer and a *Stream is returned, otherwise the dictionary itself.
//
// The byte count comes from the /Length entry, resolved through getInt if
// needed.  Files with a wrong /Length are common; when the declared extent
// does not line up with an endstream keyword, the position of the literal
// keyword wins.
func (p *parser) maybeStream(dict Dict) (Object, error) {
	tok, err := p.tok.Peek()
	if err != nil || tok.Kind != TokenKeyword || string(tok.Raw) != "stream" {
		return dict, nil
	}
	p.tok.Next()

	// a single EOL after the stream keyword, CR, LF or CRLF
	buf := p.tok.buf
	pos := p.tok.pos
	if pos < len(buf) && buf[pos] == '\r' {
		pos++
	}
	if pos < len(buf) && buf[pos] == '\n' {
		pos++
	}
	dataStart := pos

	length := int64(-1)
	if obj, ok := dict["Length"]; ok {
		if p.getInt != nil {
			if l, err := p.getInt(obj); err == nil {
				length = int64(l)
			}
		} else if l, ok := obj.(Integer); ok {
			length = int64(l)
		}
	}

	var dataEnd int
	if length >= 0 && dataStart+int(length) <= len(buf) {
		end := dataStart + int(length)
		if endstreamAt(buf, end) {
			dataEnd = end
			goto found
		}
	}

	// /Length is missing or wrong; the literal endstream keyword is
	// ground truth.
	{
		idx := bytes.Index(buf[dataStart:], []byte("endstream"))
		if idx < 0 {
			if length < 0 {
				return nil, &MalformedFileError{
					Pos: int64(dataStart),
					Err: ErrStreamLength,
				}
			}
			return nil, &MalformedFileError{
				Pos: int64(dataStart),
				Err: ErrMissingEndstream,
			}
		}
		dataEnd = dataStart + idx
		// the EOL before endstream belongs to the keyword, not the data
		if dataEnd > dataStart && buf[dataEnd-1] == '\n' {
			dataEnd--
		}
		if dataEnd > dataStart && buf[dataEnd-1] == '\r' {
			dataEnd--
		}
	}

found:
	p.tok.SetPos(int64(dataEnd))
	tok, err = p.tok.Next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != TokenKeyword || string(tok.Raw) != "endstream" {
		return nil, unexpectedToken(tok, `"endstream"`)
	}

	return &Stream{
		Dict: dict,
		Raw:  buf[dataStart:dataEnd],
	}, nil
}

// ReadIndirectObject reads an object definition "N G obj ... endobj".
//
// A missing endobj keyword is reported as [ErrMissingEndobj], but the
// object parsed up to that point is still returned; lenient callers can
// choose to use it.
func (p *parser) ReadIndirectObject() (Reference, Object, error) {
	number, err := p.readUint(math.MaxUint32, "object number")
	if err != nil {
		return 0, nil, err
	}
	generation, err := p.readUint(math.MaxUint16, "generation number")
	if err != nil {
		return 0, nil, err
	}
	err = p.expectKeyword("obj")
	if err != nil {
		return 0, nil, err
	}
	ref := NewReference(uint32(number), uint16(generation))

	obj, err := p.ReadObject()
	if err != nil {
		return 0, nil, err
	}

	save := p.tok.Pos()
	tok, err := p.tok.Next()
	if err != nil || tok.Kind != TokenKeyword || string(tok.Raw) != "endobj" {
		p.tok.SetPos(save)
		return ref, obj, ErrMissingEndobj
	}

	return ref, obj, nil
}

func (p *parser) readUint(max int64, what string) (int64, error) {
	tok, err := p.tok.Next()
	if err != nil {
		return 0, err
	}
	if tok.Kind != TokenInteger || tok.Int < 0 || tok.Int > max {
		return 0, unexpectedToken(tok, what)
	}
	return tok.Int, nil
}

func (p *parser) expectKeyword(kw string) error {
	tok, err := p.tok.Next()
	if err != nil {
		return err
	}
	if tok.Kind != TokenKeyword || string(tok.Raw) != kw {
		return unexpectedToken(tok, fmt.Sprintf("%q", kw))
	}
	return nil
}

func endstreamAt(buf []byte, pos int) bool {
	for pos < len(buf) && isSpace[buf[pos]] {
		pos++
	}
	return bytes.HasPrefix(buf[pos:], []byte("endstream"))
}

func unexpectedToken(tok Token, expected string) error {
	var found string
	if tok.Kind == TokenEOF {
		found = "end of file"
	} else {
		found = tok.String()
	}
	return &MalformedFileError{
		Pos: tok.Pos,
		Err: fmt.Errorf("expected %s but found %s", expected, found),
	}
}

// isMalformed reports whether err indicates malformed input rather than an
// I/O or programming problem.
func isMalformed(err error) bool {
	var mErr *MalformedFileError
	return errors.As(err, &mErr)
}
