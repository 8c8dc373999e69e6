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
	"io"
	"strconv"
)

// tokenizer lexes a byte buffer into a sequence of tokens.  The buffer is
// shared, never copied; Token.Raw values alias it.  The tokenizer is
// restartable: SetPos moves the cursor to an arbitrary byte offset and
// lexing resumes from there.
type tokenizer struct {
	buf []byte
	pos int
}

func newTokenizer(buf []byte, pos int64) *tokenizer {
	t := &tokenizer{buf: buf}
	t.SetPos(pos)
	return t
}

// Pos returns the current cursor position.
func (t *tokenizer) Pos() int64 {
	return int64(t.pos)
}

// SetPos moves the cursor.  Positions outside the buffer are clamped.
func (t *tokenizer) SetPos(pos int64) {
	switch {
	case pos < 0:
		t.pos = 0
	case pos > int64(len(t.buf)):
		t.pos = len(t.buf)
	default:
		t.pos = int(pos)
	}
}

// Next returns the next token, skipping white space and comments.
// At the end of the buffer a TokenEOF token is returned with a nil error.
func (t *tokenizer) Next() (Token, error) {
	for {
		tok, err := t.nextRaw()
		if err != nil || tok.Kind != TokenComment {
			return tok, err
		}
	}
}

// Peek returns the next token without consuming it.
func (t *tokenizer) Peek() (Token, error) {
	save := t.pos
	tok, err := t.Next()
	t.pos = save
	return tok, err
}

func (t *tokenizer) nextRaw() (Token, error) {
	t.skipWhiteSpace()
	start := t.pos
	if t.pos >= len(t.buf) {
		return Token{Kind: TokenEOF, Pos: int64(start)}, nil
	}

	c := t.buf[t.pos]
	switch {
	case c == '%':
		t.skipComment()
		return Token{
			Kind: TokenComment,
			Raw:  t.buf[start:t.pos],
			Pos:  int64(start),
		}, nil
	case c == '[':
		t.pos++
		return t.spanToken(TokenArrayOpen, start), nil
	case c == ']':
		t.pos++
		return t.spanToken(TokenArrayClose, start), nil
	case c == '<':
		if t.pos+1 < len(t.buf) && t.buf[t.pos+1] == '<' {
			t.pos += 2
			return t.spanToken(TokenDictOpen, start), nil
		}
		return t.readHexString()
	case c == '>':
		if t.pos+1 < len(t.buf) && t.buf[t.pos+1] == '>' {
			t.pos += 2
			return t.spanToken(TokenDictClose, start), nil
		}
		t.pos++
		return t.spanToken(TokenKeyword, start), nil
	case c == '(':
		return t.readLiteralString()
	case c == '/':
		return t.readName()
	case c >= '0' && c <= '9', c == '+', c == '-', c == '.':
		return t.readNumber(), nil
	case c == ')', c == '{', c == '}':
		// Stray delimiters are reported as keywords; the parser decides
		// what to make of them.
		t.pos++
		return t.spanToken(TokenKeyword, start), nil
	default:
		return t.readKeyword(), nil
	}
}

func (t *tokenizer) spanToken(kind TokenKind, start int) Token {
	return Token{
		Kind: kind,
		Raw:  t.buf[start:t.pos],
		Pos:  int64(start),
	}
}

func (t *tokenizer) skipWhiteSpace() {
	for t.pos < len(t.buf) && isSpace[t.buf[t.pos]] {
		t.pos++
	}
}

func (t *tokenizer) skipComment() {
	for t.pos < len(t.buf) {
		c := t.buf[t.pos]
		if c == '\r' || c == '\n' {
			break
		}
		t.pos++
	}
}

// readNumber lexes an integer or real number.  Real-world files contain
// malformed numbers like "4.", ".5" or "00042"; these all parse.  If the
// bytes cannot be read as a number at all, they are returned as a keyword
// token and the decision is left to the parser.
func (t *tokenizer) readNumber() Token {
	start := t.pos
	hasDot := false
	for t.pos < len(t.buf) {
		c := t.buf[t.pos]
		if c >= '0' && c <= '9' {
			t.pos++
		} else if c == '.' && !hasDot {
			hasDot = true
			t.pos++
		} else if (c == '+' || c == '-') && t.pos == start {
			t.pos++
		} else {
			break
		}
	}
	raw := t.buf[start:t.pos]

	if !hasDot {
		x, err := strconv.ParseInt(string(raw), 10, 64)
		if err == nil {
			return Token{
				Kind: TokenInteger,
				Raw:  raw,
				Int:  x,
				Pos:  int64(start),
			}
		}
	}
	x, err := strconv.ParseFloat(string(raw), 64)
	if err == nil {
		return Token{
			Kind:  TokenReal,
			Raw:   raw,
			Float: x,
			Pos:   int64(start),
		}
	}

	// things like "." or "-": not a number after all
	return Token{
		Kind: TokenKeyword,
		Raw:  raw,
		Pos:  int64(start),
	}
}

func (t *tokenizer) readKeyword() Token {
	start := t.pos
	for t.pos < len(t.buf) {
		c := t.buf[t.pos]
		if isSpace[c] || isDelimiter[c] {
			break
		}
		t.pos++
	}
	return Token{
		Kind: TokenKeyword,
		Raw:  t.buf[start:t.pos],
		Pos:  int64(start),
	}
}

// readName lexes a name object, decoding #xx escapes.  A '#' which is not
// followed by two hex digits is kept literally.
func (t *tokenizer) readName() (Token, error) {
	start := t.pos
	t.pos++ // the leading "/"
	var res []byte
	for t.pos < len(t.buf) {
		c := t.buf[t.pos]
		if isSpace[c] || isDelimiter[c] {
			break
		}
		if c == '#' && t.pos+2 < len(t.buf) {
			hi := hexDigit(t.buf[t.pos+1])
			lo := hexDigit(t.buf[t.pos+2])
			if hi >= 0 && lo >= 0 {
				res = append(res, byte(hi<<4|lo))
				t.pos += 3
				continue
			}
		} else if c == '#' && t.pos+2 >= len(t.buf) {
			return Token{}, &MalformedFileError{
				Pos: int64(t.pos),
				Err: io.ErrUnexpectedEOF,
			}
		}
		res = append(res, c)
		t.pos++
	}
	return Token{
		Kind: TokenName,
		Raw:  t.buf[start:t.pos],
		Data: res,
		Pos:  int64(start),
	}, nil
}

// readLiteralString lexes a ()-delimited string.  Balanced unescaped
// parentheses are allowed, backslash escapes and octal escapes are decoded,
// and the end-of-line sequences CR and CRLF are normalized to LF.
func (t *tokenizer) readLiteralString() (Token, error) {
	start := t.pos
	t.pos++ // the opening "("
	var res []byte
	depth := 0
	for t.pos < len(t.buf) {
		c := t.buf[t.pos]
		t.pos++
		switch c {
		case '\\':
			if t.pos >= len(t.buf) {
				return Token{}, &MalformedFileError{
					Pos: int64(start),
					Err: io.ErrUnexpectedEOF,
				}
			}
			e := t.buf[t.pos]
			t.pos++
			switch e {
			case 'n':
				res = append(res, '\n')
			case 'r':
				res = append(res, '\r')
			case 't':
				res = append(res, '\t')
			case 'b':
				res = append(res, '\b')
			case 'f':
				res = append(res, '\f')
			case '\n':
				// line continuation
			case '\r':
				if t.pos < len(t.buf) && t.buf[t.pos] == '\n' {
					t.pos++
				}
			default:
				if e >= '0' && e <= '7' {
					val := e - '0'
					for n := 1; n < 3 && t.pos < len(t.buf); n++ {
						d := t.buf[t.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val<<3 | (d - '0')
						t.pos++
					}
					res = append(res, val)
				} else {
					res = append(res, e)
				}
			}
		case '(':
			depth++
			res = append(res, c)
		case ')':
			if depth == 0 {
				return Token{
					Kind: TokenString,
					Raw:  t.buf[start:t.pos],
					Data: res,
					Pos:  int64(start),
				}, nil
			}
			depth--
			res = append(res, c)
		case '\r':
			res = append(res, '\n')
			if t.pos < len(t.buf) && t.buf[t.pos] == '\n' {
				t.pos++
			}
		default:
			res = append(res, c)
		}
	}
	return Token{}, &MalformedFileError{
		Pos: int64(start),
		Err: io.ErrUnexpectedEOF,
	}
}

// readHexString lexes a <>-delimited hexadecimal string.  White space is
// skipped, other non-hex bytes are ignored, and an odd number of digits is
// padded with a trailing zero.
func (t *tokenizer) readHexString() (Token, error) {
	start := t.pos
	t.pos++ // the opening "<"
	var res []byte
	var hi int = -1
	for t.pos < len(t.buf) {
		c := t.buf[t.pos]
		t.pos++
		if c == '>' {
			if hi >= 0 {
				res = append(res, byte(hi<<4))
			}
			return Token{
				Kind: TokenHexString,
				Raw:  t.buf[start:t.pos],
				Data: res,
				Pos:  int64(start),
			}, nil
		}
		d := hexDigit(c)
		if d < 0 {
			continue
		}
		if hi < 0 {
			hi = d
		} else {
			res = append(res, byte(hi<<4|d))
			hi = -1
		}
	}
	return Token{}, &MalformedFileError{
		Pos: int64(start),
		Err: io.ErrUnexpectedEOF,
	}
}

func hexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c - 'A' + 10)
	case c >= 'a' && c <= 'f':
		return int(c - 'a' + 10)
	default:
		return -1
	}
}
