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
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"errors"
	"testing"
)

func TestPadPasswd(t *testing.T) {
	padded, err := padPasswd("")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(padded, passwdPad) {
		t.Error("empty password must pad to the standard pad string")
	}

	padded, err = padPasswd("secret")
	if err != nil {
		t.Fatal(err)
	}
	if len(padded) != 32 {
		t.Fatalf("wrong length %d", len(padded))
	}
	if string(padded[:6]) != "secret" {
		t.Errorf("got %q", padded[:6])
	}
	if !bytes.Equal(padded[6:], passwdPad[:26]) {
		t.Error("wrong padding")
	}
}

// makeStdSec constructs a standard security handler fixture for revisions
// 2 to 4, computing the /O value the way a writer would.
func makeStdSec(t *testing.T, R, keyBytes int, userPwd, ownerPwd string, ID []byte, P uint32) *stdSecHandler {
	t.Helper()

	paddedUser, err := padPasswd(userPwd)
	if err != nil {
		t.Fatal(err)
	}
	paddedOwner, err := padPasswd(ownerPwd)
	if err != nil {
		t.Fatal(err)
	}

	h := md5.New()
	h.Write(paddedOwner)
	sum := h.Sum(nil)
	if R >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(sum[:keyBytes])
			sum = h.Sum(sum[:0])
		}
	}
	rc4Key := sum[:keyBytes]

	O := make([]byte, 32)
	copy(O, paddedUser)
	c, _ := rc4.NewCipher(rc4Key)
	c.XORKeyStream(O, O)
	if R >= 3 {
		tmpKey := make([]byte, keyBytes)
		for i := byte(1); i <= 19; i++ {
			for j := range tmpKey {
				tmpKey[j] = rc4Key[j] ^ i
			}
			c, _ = rc4.NewCipher(tmpKey)
			c.XORKeyStream(O, O)
		}
	}

	sec := &stdSecHandler{
		R:        R,
		ID:       ID,
		O:        O,
		P:        P,
		keyBytes: keyBytes,
	}
	key := sec.computeFileEncryptionKey(paddedUser)
	sec.U = sec.computeU(key)
	return sec
}

func TestStdSecUserPassword(t *testing.T) {
	ID := []byte("0123456789abcdef")
	for _, R := range []int{2, 3, 4} {
		keyBytes := 5
		if R >= 3 {
			keyBytes = 16
		}
		sec := makeStdSec(t, R, keyBytes, "", "hunter2", ID, 0xFFFFFFFC)

		// the empty user password must authenticate without a callback
		key, err := sec.GetKey(false)
		if err != nil {
			t.Errorf("R=%d: %s", R, err)
			continue
		}
		if len(key) != keyBytes {
			t.Errorf("R=%d: wrong key length %d", R, len(key))
		}
		if sec.ownerAuthenticated {
			t.Errorf("R=%d: user password must not grant owner access", R)
		}
	}
}

func TestStdSecOwnerPassword(t *testing.T) {
	ID := []byte("0123456789abcdef")
	for _, R := range []int{2, 3, 4} {
		keyBytes := 5
		if R >= 3 {
			keyBytes = 16
		}
		sec := makeStdSec(t, R, keyBytes, "user", "hunter2", ID, 0xFFFFFFFC)

		var tries []string
		sec.readPwd = func(id []byte, try int) string {
			if !bytes.Equal(id, ID) {
				t.Errorf("R=%d: wrong ID passed to callback", R)
			}
			tries = append(tries, "")
			switch try {
			case 0:
				return "wrong"
			case 1:
				return "hunter2"
			}
			return ""
		}

		_, err := sec.GetKey(false)
		if err != nil {
			t.Errorf("R=%d: %s", R, err)
			continue
		}
		if len(tries) != 2 {
			t.Errorf("R=%d: expected 2 password prompts, got %d", R, len(tries))
		}
		if !sec.ownerAuthenticated {
			t.Errorf("R=%d: owner password must grant owner access", R)
		}
	}
}

func TestStdSecWrongPassword(t *testing.T) {
	ID := []byte("0123456789abcdef")
	sec := makeStdSec(t, 4, 16, "user", "hunter2", ID, 0xFFFFFFFC)
	// no readPwd callback: GetKey must give up after the empty password
	_, err := sec.GetKey(false)
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if !bytes.Equal(authErr.ID, ID) {
		t.Error("wrong ID in AuthenticationError")
	}
}

func TestKeyForRef(t *testing.T) {
	ID := []byte("0123456789abcdef")
	sec := makeStdSec(t, 4, 16, "", "hunter2", ID, 0xFFFFFFFC)
	key, err := sec.GetKey(false)
	if err != nil {
		t.Fatal(err)
	}

	ref := NewReference(0x010203, 5)

	// RC4 variant
	cf := &cryptFilter{Cipher: cipherRC4, Length: 128}
	got, err := sec.KeyForRef(cf, ref)
	if err != nil {
		t.Fatal(err)
	}
	h := md5.New()
	h.Write(key)
	h.Write([]byte{0x03, 0x02, 0x01, 0x05, 0x00})
	want := h.Sum(nil)[:16]
	if !bytes.Equal(got, want) {
		t.Errorf("RC4: expected % x but got % x", want, got)
	}

	// the AES variant appends the sAlT marker
	cf = &cryptFilter{Cipher: cipherAES, Length: 128}
	got, err = sec.KeyForRef(cf, ref)
	if err != nil {
		t.Fatal(err)
	}
	h.Reset()
	h.Write(key)
	h.Write([]byte{0x03, 0x02, 0x01, 0x05, 0x00})
	h.Write([]byte("sAlT"))
	want = h.Sum(nil)[:16]
	if !bytes.Equal(got, want) {
		t.Errorf("AES: expected % x but got % x", want, got)
	}
}

func TestDecryptStringRC4(t *testing.T) {
	ID := []byte("0123456789abcdef")
	P := uint32(0xFFFFFFFC)
	sec := makeStdSec(t, 3, 16, "", "hunter2", ID, P)

	enc := Dict{
		"Filter": Name("Standard"),
		"V":      Integer(2),
		"R":      Integer(3),
		"Length": Integer(128),
		"O":      String(sec.O),
		"U":      String(sec.U),
		"P":      Integer(int64(int32(P))),
	}
	info, err := openEncrypt(enc, ID, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	ref := NewReference(12, 0)
	plain := []byte("a moderately secret string")

	// encrypt with an independently derived object key
	key, err := info.sec.GetKey(false)
	if err != nil {
		t.Fatal(err)
	}
	h := md5.New()
	h.Write(key)
	h.Write([]byte{12, 0, 0, 0, 0})
	objKey := h.Sum(nil)[:16]
	ciphertext := make([]byte, len(plain))
	c, _ := rc4.NewCipher(objKey)
	c.XORKeyStream(ciphertext, plain)

	saved := bytes.Clone(ciphertext)
	got, err := info.decryptString(ref, String(ciphertext))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("expected %q but got %q", plain, got)
	}
	if !bytes.Equal(ciphertext, saved) {
		t.Error("decryptString modified its input")
	}
}

// makeStdSecR6 constructs a revision 6 fixture: the U/UE/O/OE/Perms values
// are computed from the chosen file encryption key the way a writer would.
func makeStdSecR6(t *testing.T, userPwd, ownerPwd string, P uint32) (*stdSecHandler, []byte) {
	t.Helper()

	fileKey := make([]byte, 32)
	for i := range fileKey {
		fileKey[i] = byte(3*i + 1)
	}

	uvs := []byte("uvs-8by!")
	uks := []byte("uks-8by!")
	ovs := []byte("ovs-8by!")
	oks := []byte("oks-8by!")

	wrap := func(key, data []byte) []byte {
		out := make([]byte, 32)
		c, _ := aes.NewCipher(key)
		cbc := cipher.NewCBCEncrypter(c, zero16)
		cbc.CryptBlocks(out, data)
		return out
	}

	user := []byte(userPwd)
	U := slowHash(user, uvs, nil)
	U = append(U, uvs...)
	U = append(U, uks...)
	UE := wrap(slowHash(user, uks, nil), fileKey)

	owner := []byte(ownerPwd)
	O := slowHash(owner, ovs, U)
	O = append(O, ovs...)
	O = append(O, oks...)
	OE := wrap(slowHash(owner, oks, U), fileKey)

	permBlock := make([]byte, 16)
	permBlock[0] = byte(P)
	permBlock[1] = byte(P >> 8)
	permBlock[2] = byte(P >> 16)
	permBlock[3] = byte(P >> 24)
	permBlock[4] = 0xFF
	permBlock[5] = 0xFF
	permBlock[6] = 0xFF
	permBlock[7] = 0xFF
	permBlock[8] = 'T' // metadata is encrypted
	permBlock[9] = 'a'
	permBlock[10] = 'd'
	permBlock[11] = 'b'
	perms := make([]byte, 16)
	c, _ := aes.NewCipher(fileKey)
	c.Encrypt(perms, permBlock)

	enc := Dict{
		"R":     Integer(6),
		"O":     String(O),
		"U":     String(U),
		"OE":    String(OE),
		"UE":    String(UE),
		"Perms": String(perms),
		"P":     Integer(int64(int32(P))),
	}
	sec, err := openStdSecHandler(enc, 32, []byte("id"), nil)
	if err != nil {
		t.Fatal(err)
	}
	return sec, fileKey
}

func TestStdSecR6(t *testing.T) {
	sec, fileKey := makeStdSecR6(t, "secret", "admin", 0xFFFFFFFC)

	sec.readPwd = func(id []byte, try int) string {
		if try == 0 {
			return "secret"
		}
		return ""
	}
	key, err := sec.GetKey(false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key, fileKey) {
		t.Error("user password recovered the wrong key")
	}
	if sec.ownerAuthenticated {
		t.Error("user password must not grant owner access")
	}

	sec, fileKey = makeStdSecR6(t, "secret", "admin", 0xFFFFFFFC)
	sec.readPwd = func(id []byte, try int) string {
		if try == 0 {
			return "admin"
		}
		return ""
	}
	key, err = sec.GetKey(false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(key, fileKey) {
		t.Error("owner password recovered the wrong key")
	}
	if !sec.ownerAuthenticated {
		t.Error("owner password must grant owner access")
	}
}

func TestStdSecR6WrongPerms(t *testing.T) {
	// a Perms value for different permission bits must be rejected
	sec, _ := makeStdSecR6(t, "secret", "admin", 0xFFFFFFFC)
	sec.P = 0xFFFFFF00
	sec.readPwd = func(id []byte, try int) string {
		if try == 0 {
			return "secret"
		}
		return ""
	}
	_, err := sec.GetKey(false)
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthenticationError, got %v", err)
	}
}

func TestDecryptStringAES(t *testing.T) {
	sec, fileKey := makeStdSecR6(t, "", "admin", 0xFFFFFFFC)
	info := &encryptInfo{
		sec:  sec,
		strF: &cryptFilter{Cipher: cipherAES, Length: 256},
		stmF: &cryptFilter{Cipher: cipherAES, Length: 256},
	}

	plain := []byte("AES encrypted stream contents")

	// build IV + ciphertext with standard padding
	nPad := 16 - len(plain)%16
	padded := make([]byte, len(plain)+nPad)
	copy(padded, plain)
	for i := len(plain); i < len(padded); i++ {
		padded[i] = byte(nPad)
	}
	iv := bytes.Repeat([]byte{0x42}, 16)
	buf := make([]byte, 16+len(padded))
	copy(buf, iv)
	c, _ := aes.NewCipher(fileKey)
	cbc := cipher.NewCBCEncrypter(c, iv)
	cbc.CryptBlocks(buf[16:], padded)

	got, err := info.decryptStream(NewReference(5, 0), buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("expected %q but got %q", plain, got)
	}
}

func TestGetCryptFilter(t *testing.T) {
	CF := Dict{
		"StdCF": Dict{"CFM": Name("AESV2")},
	}
	cf, err := getCryptFilter("StdCF", CF)
	if err != nil {
		t.Fatal(err)
	}
	if cf.Cipher != cipherAES || cf.Length != 128 {
		t.Errorf("got %s", cf)
	}

	cf, err = getCryptFilter("Identity", nil)
	if err != nil || cf != nil {
		t.Errorf("Identity: got %v, %v", cf, err)
	}

	_, err = getCryptFilter("Custom", CF)
	if err == nil {
		t.Error("expected error for unknown crypt filter name")
	}
}

func TestStdSecPToPerm(t *testing.T) {
	cases := []struct {
		R    int
		P    uint32
		want Perm
	}{
		{3, 0xFFFFFFFF, PermAll},
		{2, 0xFFFFFFFF &^ (1 << 2), PermAll &^ (PermPrint | PermPrintDegraded)},
		{3, 0xFFFFFFFF &^ (1 << 11), PermAll &^ PermPrint},
		{3, 0xFFFFFFFF &^ ((1 << 2) | (1 << 11)),
			PermAll &^ (PermPrint | PermPrintDegraded)},
		{3, 0xFFFFFFFF &^ (1 << 4), PermAll &^ PermCopy},
		{3, 0xFFFFFFFF &^ (1 << 3), PermAll &^ PermModify},
		{3, 0xFFFFFFFF &^ ((1 << 3) | (1 << 10)),
			PermAll &^ (PermModify | PermAssemble)},
		{3, 0xFFFFFFFF &^ (1 << 5), PermAll &^ PermAnnotate},
		{3, 0xFFFFFFFF &^ ((1 << 5) | (1 << 8)),
			PermAll &^ (PermAnnotate | PermForms)},
	}
	for _, test := range cases {
		got := stdSecPToPerm(test.R, test.P)
		if got != test.want {
			t.Errorf("R=%d P=%#x: expected %#x but got %#x",
				test.R, test.P, test.want, got)
		}
	}
}
