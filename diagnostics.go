// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package bl4codec

import "fmt"

// DiagnosticKind classifies a non-fatal decode condition: valid bytes with
// unknown or unresolved semantics. Per the error-handling design these
// never abort a decode; they accumulate on the decoder's diagnostic sink
// (see Diagnostics) instead.
type DiagnosticKind int

const (
	// DiagUnresolvedReference marks a CS Ref token whose target could not
	// be resolved to a dependency name or an intra-document record.
	DiagUnresolvedReference DiagnosticKind = iota

	// DiagUnknownCategory marks an item-serial category id absent from
	// StaticManifest.
	DiagUnknownCategory

	// DiagPartIndexOutOfRange marks a part index beyond the category's
	// declared part count.
	DiagPartIndexOutOfRange

	// DiagUnknownKind marks a CS value-kind tag the decoder doesn't
	// recognize.
	DiagUnknownKind

	// DiagSparsePool marks a string pool whose actual serialized size is
	// smaller than its declared count.
	DiagSparsePool

	// DiagUnknownFormat marks an NCS format code other than "abjx"; the
	// document is still produced best-effort.
	DiagUnknownFormat
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagUnresolvedReference:
		return "unresolved_reference"
	case DiagUnknownCategory:
		return "unknown_category"
	case DiagPartIndexOutOfRange:
		return "part_index_out_of_range"
	case DiagUnknownKind:
		return "unknown_kind"
	case DiagSparsePool:
		return "sparse_pool"
	case DiagUnknownFormat:
		return "unknown_format"
	default:
		return "unknown"
	}
}

// Diagnostic is a single non-fatal finding surfaced alongside an otherwise
// successful decode.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	// Position is the bit offset at which the condition was observed, when
	// applicable (0 otherwise).
	Position int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s (bit %d)", d.Kind, d.Message, d.Position)
}

// diagnosticSink accumulates Diagnostics during a decode. It is embedded by
// value in the decoders that produce them. When a logger is attached, each
// addition is also surfaced through it at warn level, mirroring the
// teacher's pattern of pairing its Anomalies []string sink with a
// pe.logger.Warnf call at the same site.
type diagnosticSink struct {
	diagnostics []Diagnostic
	logger      *Helper
}

// SetLogger attaches l so future diagnostics are also logged as they are
// recorded. A nil l detaches logging without discarding accumulated
// diagnostics.
func (s *diagnosticSink) SetLogger(l *Helper) { s.logger = l }

func (s *diagnosticSink) add(kind DiagnosticKind, position int, format string, args ...any) {
	d := Diagnostic{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Position: position,
	}
	s.diagnostics = append(s.diagnostics, d)
	if s.logger != nil {
		s.logger.Warnf("%s", d.String())
	}
}

// Diagnostics returns the diagnostics collected so far.
func (s *diagnosticSink) Diagnostics() []Diagnostic {
	return s.diagnostics
}
