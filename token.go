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

import "fmt"

// TokenKind identifies the lexical class of a [Token].
type TokenKind int

const (
	// TokenEOF marks the end of the input buffer.
	TokenEOF TokenKind = iota

	// TokenInteger is an integer number.  The value is in Token.Int.
	TokenInteger

	// TokenReal is a real number.  The value is in Token.Float.
	TokenReal

	// TokenName is a name object, with #xx escapes already decoded into
	// Token.Data (without the leading slash).
	TokenName

	// TokenString is a ()-delimited literal string, with escape sequences
	// already decoded into Token.Data.
	TokenString

	// TokenHexString is a <>-delimited hexadecimal string, decoded into
	// Token.Data.
	TokenHexString

	// TokenKeyword is a bare keyword such as "obj", "R" or "true".
	// Stray delimiter bytes which have no meaning of their own, like "{",
	// are also reported as keywords; deciding whether they make sense is
	// the parser's job.
	TokenKeyword

	// TokenArrayOpen and TokenArrayClose delimit arrays.
	TokenArrayOpen
	TokenArrayClose

	// TokenDictOpen and TokenDictClose delimit dictionaries.
	TokenDictOpen
	TokenDictClose

	// TokenComment is a %-comment.  The tokenizer consumes comments
	// silently; this kind only occurs on the internal raw token stream.
	TokenComment
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenInteger:
		return "Integer"
	case TokenReal:
		return "Real"
	case TokenName:
		return "Name"
	case TokenString:
		return "String"
	case TokenHexString:
		return "HexString"
	case TokenKeyword:
		return "Keyword"
	case TokenArrayOpen:
		return "ArrayOpen"
	case TokenArrayClose:
		return "ArrayClose"
	case TokenDictOpen:
		return "DictOpen"
	case TokenDictClose:
		return "DictClose"
	case TokenComment:
		return "Comment"
	default:
		return fmt.Sprintf("TokenKind(%d)", int(k))
	}
}

// Token is a single lexical unit of a PDF file.  Raw is the byte span the
// token was read from, sliced from the input buffer; it is kept for
// diagnostics and must not be modified.
type Token struct {
	Kind TokenKind

	// Raw is the raw byte span of the token.
	Raw []byte

	// Data holds the decoded payload for names and strings.
	Data []byte

	Int   int64
	Float float64

	// Pos is the byte offset of the token in the input buffer.
	Pos int64
}

func (t Token) String() string {
	switch t.Kind {
	case TokenInteger:
		return fmt.Sprintf("Integer(%d)", t.Int)
	case TokenReal:
		return fmt.Sprintf("Real(%g)", t.Float)
	case TokenName:
		return fmt.Sprintf("Name(/%s)", t.Data)
	case TokenString, TokenHexString:
		return fmt.Sprintf("%s(%q)", t.Kind, t.Data)
	case TokenKeyword:
		return fmt.Sprintf("Keyword(%q)", t.Raw)
	default:
		return t.Kind.String()
	}
}
