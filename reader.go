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
	"os"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MissingReferencePolicy selects how [Reader.Resolve] treats references to
// objects which are absent from the cross-reference index or marked free.
type MissingReferencePolicy int

const (
	// ErrorOnMissing reports dangling and free references as a
	// *ResolveError.  This is the default.
	ErrorOnMissing MissingReferencePolicy = iota

	// NullOnMissing resolves dangling and free references to the null
	// object, the way a viewer application would.
	NullOnMissing
)

// ReaderOptions influence how a PDF file is opened.
type ReaderOptions struct {
	// ReadPassword is called when an encrypted file cannot be opened with
	// the empty password.  The function is called repeatedly, with
	// incrementing try, until it returns the correct password or the empty
	// string.  ID is the original document ID from the trailer.
	ReadPassword func(ID []byte, try int) string

	// MissingReference selects the behavior of Resolve for dangling and
	// free references.
	MissingReference MissingReferencePolicy
}

var defaultReaderOptions = &ReaderOptions{}

// Reader provides access to the object graph of a PDF file.
//
// The file contents are held in an immutable byte buffer; indirect objects
// are parsed lazily when they are first resolved and then cached.  A
// Reader can be used from multiple goroutines at the same time.
type Reader struct {
	// Version is the PDF version from the file header.
	Version Version

	// ID is the two-element document ID from the trailer, or nil.
	ID [][]byte

	buf     []byte
	xref    map[uint32]*xRefEntry
	trailer Dict
	enc     *encryptInfo
	encRef  Reference

	// Repaired is set when the cross-reference data was unusable and the
	// object index had to be rebuilt by scanning the whole file.
	Repaired bool

	opt ReaderOptions

	mu       sync.Mutex
	cache    *lruCache[Reference, Object]
	stmCache *lruCache[Reference, []byte]
}

const (
	objCacheSize    = 1000
	objStmCacheSize = 16
)

// Open reads the PDF file with the given name.
func Open(name string, opt *ReaderOptions) (*Reader, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return NewReader(data, opt)
}

// NewReader creates a Reader for the PDF file contained in data.  The
// Reader keeps a reference to data; the caller must not modify the slice
// afterwards.
func NewReader(data []byte, opt *ReaderOptions) (*Reader, error) {
	if opt == nil {
		opt = defaultReaderOptions
	}

	r := &Reader{
		buf:      data,
		opt:      *opt,
		cache:    newCache[Reference, Object](objCacheSize),
		stmCache: newCache[Reference, []byte](objStmCacheSize),
	}

	version, err := readHeaderVersion(data)
	if err != nil {
		return nil, err
	}
	r.Version = version

	start, err := findStartXRef(data)
	if err == nil {
		r.xref, r.trailer, err = readXRef(data, start)
	}
	if err != nil || len(r.xref) == 0 {
		// the cross-reference data is unusable, rebuild it from a full
		// scan of the file
		xref, trailer, scavErr := scavengeXRef(data)
		if scavErr != nil {
			return nil, scavErr
		}
		r.xref = xref
		r.trailer = trailer
		r.Repaired = true
	}

	if idObj, ok := r.trailer["ID"].(Array); ok && len(idObj) >= 2 {
		id0, ok0 := idObj[0].(String)
		id1, ok1 := idObj[1].(String)
		if ok0 && ok1 {
			r.ID = [][]byte{[]byte(id0), []byte(id1)}
		}
	}

	if encObj, ok := r.trailer["Encrypt"]; ok {
		if ref, ok := encObj.(Reference); ok {
			r.encRef = ref
		}
		resolve := func(obj Object) (Object, error) {
			return r.resolve(obj, make(map[Reference]bool))
		}
		encDict, err := getResolved[Dict](r, encObj, "dictionary")
		if err != nil {
			return nil, wrap(err, "/Encrypt")
		}
		var id []byte
		if r.ID != nil {
			id = r.ID[0]
		}
		enc, err := openEncrypt(encDict, id, resolve, opt.ReadPassword)
		if err != nil {
			return nil, err
		}
		r.enc = enc

		// fail early if no usable password is available
		_, err = enc.sec.GetKey(false)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Trailer returns the document trailer dictionary.  Callers must not
// modify the returned dictionary.
func (r *Reader) Trailer() Dict {
	return r.trailer
}

// Root returns the document catalog.
func (r *Reader) Root() (Dict, error) {
	obj, ok := r.trailer["Root"]
	if !ok {
		return nil, ErrMissingRoot
	}
	dict, err := r.GetDict(obj)
	if err != nil {
		return nil, wrap(err, "/Root")
	}
	if dict == nil {
		return nil, ErrMissingRoot
	}
	return dict, nil
}

// Info returns the document information dictionary, or nil if the file
// has none.
func (r *Reader) Info() (Dict, error) {
	obj, ok := r.trailer["Info"]
	if !ok {
		return nil, nil
	}
	return r.GetDict(obj)
}

// Permissions reports the operations permitted with user access.  For
// unencrypted files this is PermAll.
func (r *Reader) Permissions() Perm {
	if r.enc != nil {
		return r.enc.UserPermissions
	}
	return PermAll
}

// ObjectCount returns the number of in-use objects in the cross-reference
// index.
func (r *Reader) ObjectCount() int {
	n := 0
	for _, entry := range r.xref {
		if !entry.IsFree() {
			n++
		}
	}
	return n
}

// Objects returns the references of all in-use objects, sorted by object
// number.
func (r *Reader) Objects() []Reference {
	nums := maps.Keys(r.xref)
	slices.Sort(nums)
	var refs []Reference
	for _, num := range nums {
		entry := r.xref[num]
		if entry.IsFree() {
			continue
		}
		gen := entry.Generation
		if entry.InStream != 0 {
			gen = 0
		}
		refs = append(refs, NewReference(num, gen))
	}
	return refs
}

// Resolve resolves references to indirect objects, repeatedly, until a
// direct object is reached.  Objects other than references are returned
// unchanged.
func (r *Reader) Resolve(obj Object) (Object, error) {
	if _, ok := obj.(Reference); !ok {
		return obj, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(obj, make(map[Reference]bool))
}

// resolve is the unlocked resolution loop.  seen tracks the references on
// the current resolution path for cycle detection; it is shared with the
// nested resolutions triggered by stream lengths and object stream
// containers, so that loops through those are detected as well.
func (r *Reader) resolve(obj Object, seen map[Reference]bool) (Object, error) {
	for {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}

		if cached, ok := r.cache.Get(ref); ok {
			obj = cached
			if _, again := obj.(Reference); !again {
				return obj, nil
			}
			// the cached value is itself a reference; keep following it,
			// but watch for reference cycles
			if seen[ref] {
				return nil, &ResolveError{Ref: ref, Kind: ResolveCycle}
			}
			seen[ref] = true
			continue
		}

		if seen[ref] {
			return nil, &ResolveError{Ref: ref, Kind: ResolveCycle}
		}
		seen[ref] = true

		parsed, err := r.loadObject(ref, seen)
		if err != nil {
			return nil, err
		}
		r.cache.Put(ref, parsed)
		obj = parsed
	}
}

// loadObject parses the object the cross-reference index lists for ref.
func (r *Reader) loadObject(ref Reference, seen map[Reference]bool) (Object, error) {
	entry := r.xref[ref.Number()]
	switch {
	case entry == nil:
		return r.missing(&ResolveError{Ref: ref, Kind: ResolveDangling})
	case entry.IsFree():
		return r.missing(&ResolveError{Ref: ref, Kind: ResolveFree})
	case entry.InStream != 0:
		if ref.Generation() != 0 {
			return r.missing(&ResolveError{Ref: ref, Kind: ResolveDangling})
		}
		return r.loadCompressed(ref, entry, seen)
	case entry.Generation != ref.Generation():
		return r.missing(&ResolveError{Ref: ref, Kind: ResolveDangling})
	}

	getInt := func(obj Object) (Integer, error) {
		obj, err := r.resolve(obj, seen)
		if err != nil {
			return 0, err
		}
		i, ok := obj.(Integer)
		if !ok {
			return 0, fmt.Errorf("expected integer, got %s", Format(obj))
		}
		return i, nil
	}

	p := newParser(r.buf, entry.Pos, getInt)
	got, obj, err := p.ReadIndirectObject()
	if err != nil && !errors.Is(err, ErrMissingEndobj) {
		return nil, err
	}
	if got != ref {
		// the offset points at some other object
		return r.missing(&ResolveError{
			Ref:  ref,
			Kind: ResolveDangling,
			Err:  fmt.Errorf("found %s instead", got),
		})
	}

	if r.enc != nil && ref != r.encRef {
		obj, err = r.decryptObject(ref, obj)
		if err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// loadCompressed parses an object stored inside an object stream.
func (r *Reader) loadCompressed(ref Reference, entry *xRefEntry, seen map[Reference]bool) (Object, error) {
	container := entry.InStream

	badContainer := func(err error) (Object, error) {
		return nil, &ResolveError{Ref: ref, Kind: ResolveBadContainer, Err: err}
	}

	data, ok := r.stmCache.Get(container)
	var first int64
	if !ok {
		obj, err := r.resolve(container, seen)
		if err != nil {
			return badContainer(err)
		}
		stream, ok := obj.(*Stream)
		if !ok {
			return badContainer(errors.New("container is not a stream"))
		}
		if tp, _ := stream.Dict["Type"].(Name); tp != "ObjStm" {
			return badContainer(errors.New("container is not an object stream"))
		}
		resolve := func(obj Object) (Object, error) {
			return r.resolve(obj, seen)
		}
		data, err = stream.Decode(resolve)
		if err != nil {
			return badContainer(err)
		}
		r.stmCache.Put(container, data)
	}

	// refetch /N and /First through the cache; the container object
	// itself is cached by the resolve call above
	containerObj, err := r.resolve(container, seen)
	if err != nil {
		return badContainer(err)
	}
	stream, ok := containerObj.(*Stream)
	if !ok {
		return badContainer(errors.New("container is not a stream"))
	}
	n, ok := stream.Dict["N"].(Integer)
	if !ok || n < 0 {
		return badContainer(errors.New("missing /N"))
	}
	firstObj, ok := stream.Dict["First"].(Integer)
	if !ok || firstObj < 0 {
		return badContainer(errors.New("missing /First"))
	}
	first = int64(firstObj)

	// the stream starts with N pairs of integers (object number, offset)
	tok := newTokenizer(data, 0)
	offset := int64(-1)
	for i := Integer(0); i < n; i++ {
		numTok, err := tok.Next()
		if err != nil {
			return badContainer(err)
		}
		offTok, err := tok.Next()
		if err != nil {
			return badContainer(err)
		}
		if numTok.Kind != TokenInteger || offTok.Kind != TokenInteger {
			return badContainer(errors.New("malformed index"))
		}
		if uint32(numTok.Int) == ref.Number() {
			offset = offTok.Int
			break
		}
	}
	if offset < 0 {
		return r.missing(&ResolveError{
			Ref:  ref,
			Kind: ResolveDangling,
			Err:  errors.New("object not in container"),
		})
	}

	p := newParser(data, first+offset, nil)
	obj, err := p.ReadObject()
	if err != nil {
		return badContainer(err)
	}
	return obj, nil
}

// missing applies the configured policy for unresolvable references.
func (r *Reader) missing(err *ResolveError) (Object, error) {
	switch err.Kind {
	case ResolveDangling, ResolveFree:
		if r.opt.MissingReference == NullOnMissing {
			return nil, nil
		}
	}
	return nil, err
}

// decryptObject decrypts the strings and stream contents of a freshly
// parsed object in place.  Parsed containers never alias the file buffer,
// except for stream contents, which decryptStream copies.
func (r *Reader) decryptObject(ref Reference, obj Object) (Object, error) {
	switch x := obj.(type) {
	case String:
		return r.enc.decryptString(ref, x)
	case Array:
		for i, elem := range x {
			dec, err := r.decryptObject(ref, elem)
			if err != nil {
				return nil, err
			}
			x[i] = dec
		}
		return x, nil
	case Dict:
		for key, val := range x {
			dec, err := r.decryptObject(ref, val)
			if err != nil {
				return nil, err
			}
			x[key] = dec
		}
		return x, nil
	case *Stream:
		// cross-reference streams are read before decryption is set up
		// and are never encrypted; metadata streams may be exempt
		if tp, _ := x.Dict["Type"].(Name); tp == "XRef" ||
			tp == "Metadata" && r.enc.sec.unencryptedMetaData {
			return x, nil
		}
		dict, err := r.decryptObject(ref, x.Dict)
		if err != nil {
			return nil, err
		}
		raw, err := r.enc.decryptStream(ref, x.Raw)
		if err != nil {
			return nil, err
		}
		return &Stream{Dict: dict.(Dict), Raw: raw}, nil
	default:
		return obj, nil
	}
}

// StreamData resolves obj to a stream and returns its decoded contents.
func (r *Reader) StreamData(obj Object) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[Reference]bool)
	resolved, err := r.resolve(obj, seen)
	if err != nil {
		return nil, err
	}
	stream, ok := resolved.(*Stream)
	if !ok {
		return nil, fmt.Errorf("expected stream, got %s", Format(resolved))
	}
	resolve := func(obj Object) (Object, error) {
		return r.resolve(obj, seen)
	}
	return stream.Decode(resolve)
}

// GetDict resolves obj and returns it as a dictionary.  The dictionary of
// a stream qualifies.  Null resolves to a nil dictionary.
func (r *Reader) GetDict(obj Object) (Dict, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	switch x := resolved.(type) {
	case nil:
		return nil, nil
	case Dict:
		return x, nil
	case *Stream:
		return x.Dict, nil
	default:
		return nil, fmt.Errorf("expected dictionary, got %s", Format(resolved))
	}
}

// GetArray resolves obj and returns it as an array.
func (r *Reader) GetArray(obj Object) (Array, error) {
	return getResolved[Array](r, obj, "array")
}

// GetName resolves obj and returns it as a name.
func (r *Reader) GetName(obj Object) (Name, error) {
	return getResolved[Name](r, obj, "name")
}

// GetString resolves obj and returns it as a string.
func (r *Reader) GetString(obj Object) (String, error) {
	return getResolved[String](r, obj, "string")
}

// GetInt resolves obj and returns it as an integer.
func (r *Reader) GetInt(obj Object) (Integer, error) {
	return getResolved[Integer](r, obj, "integer")
}

// GetReal resolves obj and returns it as a real number.  Integers are
// converted.
func (r *Reader) GetReal(obj Object) (Real, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return 0, err
	}
	switch x := resolved.(type) {
	case Real:
		return x, nil
	case Integer:
		return Real(x), nil
	default:
		return 0, fmt.Errorf("expected number, got %s", Format(resolved))
	}
}

// GetBool resolves obj and returns it as a boolean.
func (r *Reader) GetBool(obj Object) (Bool, error) {
	return getResolved[Bool](r, obj, "boolean")
}

// GetStream resolves obj and returns it as a stream.
func (r *Reader) GetStream(obj Object) (*Stream, error) {
	return getResolved[*Stream](r, obj, "stream")
}

func getResolved[T Object](r *Reader, obj Object, what string) (T, error) {
	var zero T
	resolved, err := r.Resolve(obj)
	if err != nil {
		return zero, err
	}
	if resolved == nil {
		return zero, nil
	}
	x, ok := resolved.(T)
	if !ok {
		return zero, fmt.Errorf("expected %s, got %s", what, Format(resolved))
	}
	return x, nil
}

// Version represents a version of the PDF file format.
type Version int

// The PDF file format versions.
const (
	_ Version = iota
	V1_0
	V1_1
	V1_2
	V1_3
	V1_4
	V1_5
	V1_6
	V1_7
	V2_0
)

// ParseVersion parses a version string like "1.7".
func ParseVersion(s string) (Version, error) {
	switch s {
	case "1.0":
		return V1_0, nil
	case "1.1":
		return V1_1, nil
	case "1.2":
		return V1_2, nil
	case "1.3":
		return V1_3, nil
	case "1.4":
		return V1_4, nil
	case "1.5":
		return V1_5, nil
	case "1.6":
		return V1_6, nil
	case "1.7":
		return V1_7, nil
	case "2.0":
		return V2_0, nil
	}
	return 0, errVersion
}

func (ver Version) String() string {
	if ver >= V1_0 && ver <= V1_7 {
		return fmt.Sprintf("1.%d", ver-V1_0)
	}
	if ver == V2_0 {
		return "2.0"
	}
	return fmt.Sprintf("Version(%d)", int(ver))
}

// headerWindow is how far into the buffer the %PDF- header may sit.
// Some files carry preamble junk before the header.
const headerWindow = 1024

// readHeaderVersion finds the %PDF- header and parses the version number.
func readHeaderVersion(buf []byte) (Version, error) {
	window := buf
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	idx := bytes.Index(window, []byte("%PDF-"))
	if idx < 0 {
		return 0, &MalformedFileError{Err: ErrNoPDF}
	}
	rest := buf[idx+5:]
	if len(rest) < 3 {
		return 0, &MalformedFileError{Pos: int64(idx), Err: errVersion}
	}
	ver, err := ParseVersion(string(rest[:3]))
	if err != nil {
		return 0, &MalformedFileError{Pos: int64(idx), Err: err}
	}
	return ver, nil
}
