// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/require"
)

const testIdentifier = "76561197960521364"

func TestDeriveKey(t *testing.T) {
	key, err := DeriveKey(testIdentifier)
	require.NoError(t, err)
	require.NotEqual(t, baseKey[0:8], key[0:8])
	require.Equal(t, baseKey[8:], key[8:])
}

func TestDeriveKeyDeterministic(t *testing.T) {
	a, err := DeriveKey(testIdentifier)
	require.NoError(t, err)
	b, err := DeriveKey(testIdentifier)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDeriveKeyNoDigits(t *testing.T) {
	_, err := DeriveKey("no-digits-here")
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestSaveCryptogramRoundtrip(t *testing.T) {
	sc := NewSaveCryptogram()
	plaintext := []byte("character_name: Vault Hunter\nlevel: 42\ncash: 1000000\n")

	encrypted, err := sc.Encrypt(plaintext, testIdentifier)
	require.NoError(t, err)
	require.Equal(t, 0, len(encrypted)%aesBlockSize)

	decrypted, err := sc.Decrypt(encrypted, testIdentifier)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}

func TestSaveCryptogramReencryptPreservesContent(t *testing.T) {
	sc := NewSaveCryptogram()
	plaintext := []byte("foo: bar\nbaz: 1\n")

	input, err := sc.Encrypt(plaintext, testIdentifier)
	require.NoError(t, err)

	decrypted, err := sc.Decrypt(input, testIdentifier)
	require.NoError(t, err)

	reencrypted, err := sc.Encrypt(decrypted, testIdentifier)
	require.NoError(t, err)

	redecrypted, err := sc.Decrypt(reencrypted, testIdentifier)
	require.NoError(t, err)

	require.Equal(t, decrypted, redecrypted)
}

func TestSaveCryptogramInvalidSize(t *testing.T) {
	sc := NewSaveCryptogram()
	_, err := sc.Decrypt(make([]byte, 17), testIdentifier)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestSaveCryptogramNonStandardPaddingFallsBackToRawBytes(t *testing.T) {
	sc := NewSaveCryptogram()
	plaintext := []byte("a: 1\n")

	// Build a cryptogram without the footer-then-pad dance. The encoder
	// writes deflate output directly padded with zero bytes, which is not
	// valid PKCS7 for most lengths; decode must still succeed because zlib
	// self-terminates.
	key, err := DeriveKey(testIdentifier)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err = zw.Write(plaintext)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	raw := buf.Bytes()
	for len(raw)%aesBlockSize != 0 {
		raw = append(raw, 0x00)
	}
	require.NoError(t, ecbEncrypt(raw, key))

	decrypted, err := sc.Decrypt(raw, testIdentifier)
	require.NoError(t, err)
	require.Equal(t, plaintext, decrypted)
}
