package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// Array kinds recognized from a binaryDataArray's controlled-vocabulary
// parameters. Unknown arrays are skipped by the caller.
const (
	KindMZ        = "mz"
	KindIntensity = "intensity"
	KindUnknown   = "unknown"
)

// DecodeError reports a failure decoding one binary data array. It is
// attached to the owning spectrum record rather than aborting extraction.
type DecodeError struct {
	Kind       string
	SpectrumID string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s array of spectrum %s: %v", e.Kind, e.SpectrumID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// decodeBinaryArray decodes one binaryDataArray element into 64-bit floats.
// Precision, compression and array kind are all declared through cvParam
// name substrings; precision defaults to 64-bit when undeclared.
func decodeBinaryArray(a *binaryDataArray, spectrumID string) (string, []float64, error) {
	kind := KindUnknown
	width := 8
	compressed := false

	for _, p := range a.CvParams {
		name := strings.ToLower(p.Name)
		switch {
		case strings.Contains(name, "32-bit float"):
			width = 4
		case strings.Contains(name, "64-bit float"):
			width = 8
		case strings.Contains(name, "zlib compression"):
			compressed = true
		case strings.Contains(name, "m/z array"):
			kind = KindMZ
		case strings.Contains(name, "intensity array"):
			kind = KindIntensity
		}
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(a.Binary))
	if err != nil {
		return kind, nil, &DecodeError{Kind: kind, SpectrumID: spectrumID,
			Err: fmt.Errorf("invalid base64: %w", err)}
	}

	if compressed {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return kind, nil, &DecodeError{Kind: kind, SpectrumID: spectrumID,
				Err: fmt.Errorf("invalid zlib stream: %w", err)}
		}
		inflated, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return kind, nil, &DecodeError{Kind: kind, SpectrumID: spectrumID,
				Err: fmt.Errorf("corrupt zlib stream: %w", err)}
		}
		raw = inflated
	}

	if len(raw)%width != 0 {
		return kind, nil, &DecodeError{Kind: kind, SpectrumID: spectrumID,
			Err: fmt.Errorf("byte length %d is not a multiple of element width %d", len(raw), width)}
	}

	values := make([]float64, len(raw)/width)
	if width == 8 {
		for i := range values {
			bits := binary.LittleEndian.Uint64(raw[i*8:])
			values[i] = math.Float64frombits(bits)
		}
	} else {
		for i := range values {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			values[i] = float64(math.Float32frombits(bits))
		}
	}

	return kind, values, nil
}
