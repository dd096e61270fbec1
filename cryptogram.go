// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"hash/adler32"
	"io"
	"strconv"
	"strings"
)

// baseKey is the fixed base encryption key used for every save cryptogram,
// XORed per-save against an identifier-derived 8-byte value.
var baseKey = [32]byte{
	0x35, 0xEC, 0x33, 0x77, 0xF3, 0x5D, 0xB0, 0xEA, 0xBE, 0x6B, 0x83, 0x11, 0x54, 0x03, 0xEB, 0xFB,
	0x27, 0x25, 0x64, 0x2E, 0xD5, 0x49, 0x06, 0x29, 0x05, 0x78, 0xBD, 0x60, 0xBA, 0x4A, 0xA7, 0x87,
}

const aesBlockSize = 16

// SaveCryptogram implements round-trippable encryption for the save
// container: AES-256-ECB with PKCS7 padding wrapping a zlib-compressed
// textual configuration tree. This is format faithfulness, not hardening:
// ECB with a player-id-derived key is the actual on-disk format.
type SaveCryptogram struct{}

// NewSaveCryptogram returns a ready-to-use SaveCryptogram. It carries no
// state; every operation is a pure function of its arguments.
func NewSaveCryptogram() *SaveCryptogram { return &SaveCryptogram{} }

// DeriveKey extracts the ASCII decimal digits of identifier, parses them as
// a u64, encodes that little-endian into 8 bytes, and XORs those bytes into
// the first 8 bytes of the fixed base key. Bytes 8..31 are unchanged.
func DeriveKey(identifier string) ([32]byte, error) {
	var digits strings.Builder
	for _, r := range identifier {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return [32]byte{}, ErrInvalidIdentifier
	}

	n, err := strconv.ParseUint(digits.String(), 10, 64)
	if err != nil {
		return [32]byte{}, ErrInvalidIdentifier
	}

	key := baseKey
	for i := 0; i < 8; i++ {
		key[i] ^= byte(n >> uint(i*8))
	}
	return key, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func pkcs7Unpad(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return nil, false
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, false
		}
	}
	return data[:len(data)-padLen], true
}

func ecbDecrypt(block []byte, key [32]byte) error {
	cipher, err := aes.NewCipher(key[:])
	if err != nil {
		return err
	}
	for off := 0; off+aesBlockSize <= len(block); off += aesBlockSize {
		cipher.Decrypt(block[off:off+aesBlockSize], block[off:off+aesBlockSize])
	}
	return nil
}

func ecbEncrypt(block []byte, key [32]byte) error {
	cipher, err := aes.NewCipher(key[:])
	if err != nil {
		return err
	}
	for off := 0; off+aesBlockSize <= len(block); off += aesBlockSize {
		cipher.Encrypt(block[off:off+aesBlockSize], block[off:off+aesBlockSize])
	}
	return nil
}

// Decrypt turns an encrypted save cryptogram into its inflated textual
// configuration tree bytes. len(encrypted) must be a multiple of 16.
//
// PKCS7 unpadding failure does not abort decode: some observed saves carry
// non-standard padding, so the raw decrypted bytes are retained and handed
// to zlib as-is (the inflater is self-terminating and ignores trailing
// garbage).
func (SaveCryptogram) Decrypt(encrypted []byte, identifier string) ([]byte, error) {
	if len(encrypted)%aesBlockSize != 0 {
		return nil, ErrInvalidSize
	}

	key, err := DeriveKey(identifier)
	if err != nil {
		return nil, err
	}

	decrypted := make([]byte, len(encrypted))
	copy(decrypted, encrypted)
	if err := ecbDecrypt(decrypted, key); err != nil {
		return nil, err
	}

	unpadded, ok := pkcs7Unpad(decrypted)
	if !ok {
		unpadded = decrypted
	}

	zr, err := zlib.NewReader(bytes.NewReader(unpadded))
	if err != nil {
		return nil, ErrCryptoFailure
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, ErrCryptoFailure
	}
	return out, nil
}

// Encrypt turns a textual configuration tree back into a save cryptogram:
// deflate at max compression, append adler32||uncompressed_len, PKCS7-pad
// to 16 bytes, then AES-256-ECB encrypt. The footer is written here but not
// required by Decrypt, which relies on zlib's self-terminating stream.
func (SaveCryptogram) Encrypt(plaintext []byte, identifier string) ([]byte, error) {
	key, err := DeriveKey(identifier)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(plaintext); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	compressed := buf.Bytes()
	footer := make([]byte, 8)
	sum := adler32.Checksum(plaintext)
	footer[0] = byte(sum)
	footer[1] = byte(sum >> 8)
	footer[2] = byte(sum >> 16)
	footer[3] = byte(sum >> 24)
	n := uint32(len(plaintext))
	footer[4] = byte(n)
	footer[5] = byte(n >> 8)
	footer[6] = byte(n >> 16)
	footer[7] = byte(n >> 24)

	framed := append(compressed, footer...)
	padded := pkcs7Pad(framed, aesBlockSize)

	if err := ecbEncrypt(padded, key); err != nil {
		return nil, err
	}
	return padded, nil
}
