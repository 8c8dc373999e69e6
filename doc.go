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

// Package pdf reads the object graph of PDF files.
//
// A PDF file is a container for a collection of objects (dictionaries,
// arrays, streams, numbers, strings, ...) which refer to each other through
// indirect references.  This package locates objects via the file's
// cross-reference data and resolves references lazily:
//
//	r, err := pdf.Open("in.pdf", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	catalog, err := r.Root()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pages, err := r.GetDict(catalog["Pages"])
//	...
//
// Files with damaged or missing cross-reference data are repaired by
// scanning the whole file for object definitions.  Encrypted files are
// decrypted transparently; passwords are requested through
// [ReaderOptions.ReadPassword].
//
// The following types implement the native PDF object types.  All of them
// implement the [Object] interface:
//
//	Array
//	Bool
//	Dict
//	Integer
//	Name
//	Real
//	Reference
//	*Stream
//	String
//
// The PDF null object is represented by a nil Object.
package pdf
