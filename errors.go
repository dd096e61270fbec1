// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import "errors"

// Fatal errors returned by the codecs in this package. These correspond to
// the surfaced error kinds from the error-handling design: BadInput,
// Underflow/Overflow, SizeMismatch and CryptoFailure. Diagnostic-only
// conditions (UnresolvedReference, UnknownCategory, UnknownKind) never
// reach the caller as an error; see Diagnostic.
var (
	// ErrInvalidSize is returned when a cryptogram's length is not a
	// multiple of the AES block size.
	ErrInvalidSize = errors.New("bl4codec: input size is not a multiple of 16 bytes")

	// ErrInvalidIdentifier is returned when a player identifier contains no
	// decimal digits and therefore cannot seed key derivation.
	ErrInvalidIdentifier = errors.New("bl4codec: identifier contains no decimal digits")

	// ErrCryptoFailure is returned when both PKCS7 unpadding and zlib
	// inflation fail on a decrypted cryptogram.
	ErrCryptoFailure = errors.New("bl4codec: padding check and inflate both failed")

	// ErrMissingPrefix is returned when a serial string lacks the "@Ug"
	// literal prefix.
	ErrMissingPrefix = errors.New("bl4codec: serial is missing the @Ug prefix")

	// ErrBadBase85 is returned when a serial's body contains a byte outside
	// the custom Base85 alphabet.
	ErrBadBase85 = errors.New("bl4codec: invalid base85 character")

	// ErrUnderflow is returned when a BitCursor read runs past the end of
	// its backing buffer.
	ErrUnderflow = errors.New("bl4codec: bit cursor underflow")

	// ErrOverflow is returned when a varint/varbit read exceeds its
	// encoding's maximum representable width.
	ErrOverflow = errors.New("bl4codec: bit cursor value overflow")

	// ErrBadContainer is returned for malformed NCS/manifest outer framing:
	// bad magic, non-zero reserved fields, or declared sizes that exceed
	// the hard caps in the memory-bounds design.
	ErrBadContainer = errors.New("bl4codec: malformed NCS container")

	// ErrSizeMismatch is returned when a Decompressor returns fewer bytes
	// than the container declared.
	ErrSizeMismatch = errors.New("bl4codec: decompressed size does not match declared size")

	// ErrKeyNotFound is returned by SaveDocument.Get for a dotted path that
	// does not resolve to a value.
	ErrKeyNotFound = errors.New("bl4codec: key not found")

	// ErrTypeMismatch is returned by SaveDocument typed accessors when the
	// resolved value has the wrong shape.
	ErrTypeMismatch = errors.New("bl4codec: type mismatch")

	// ErrInvalidGrid is returned when a decoded fog-of-discovery grid is
	// not exactly 16,384 bytes.
	ErrInvalidGrid = errors.New("bl4codec: fog-of-discovery grid has the wrong size")

	// ErrUnknownDecompressor is returned when CSDecoder is asked to use a
	// Decompressor backend name that was never registered.
	ErrUnknownDecompressor = errors.New("bl4codec: unknown decompressor backend")
)
