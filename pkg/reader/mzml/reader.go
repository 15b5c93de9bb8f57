// Package mzml extracts MS1 scan peak lists from mzML instrument output.
// Spectrum metadata arrives as controlled-vocabulary name/value attribute
// pairs; peak arrays arrive base64-encoded, optionally zlib-compressed,
// as little-endian 32- or 64-bit floats.
package mzml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/cail-lab/kmdnoise/pkg/core"
)

// ErrNoSpectra means the document contained no spectrum elements under
// either namespaced or unqualified lookup. Like a malformed document,
// this aborts the whole extraction.
var ErrNoSpectra = errors.New("mzml: no spectrum elements found")

// scanIDPattern extracts the scan number portion of a native spectrum id,
// e.g. "controllerType=0 controllerNumber=1 scan=1234" -> "scan=1234".
var scanIDPattern = regexp.MustCompile(`scan=\d+`)

// Result holds the outcome of one extraction pass.
type Result struct {
	// Records are the retained MS1 spectra in document order.
	Records []core.SpectrumRecord
	// CountsByMSLevel tallies all spectra seen, including dropped levels.
	CountsByMSLevel map[string]int
	// DecodeErrorCount totals the non-fatal binary array decode failures.
	DecodeErrorCount int
	// Namespace is the default namespace resolved from the root element
	// ("" for unqualified documents).
	Namespace string
}

type cvParam struct {
	Accession string `xml:"accession,attr"`
	Name      string `xml:"name,attr"`
	Value     string `xml:"value,attr"`
}

type binaryDataArray struct {
	EncodedLength int       `xml:"encodedLength,attr"`
	CvParams      []cvParam `xml:"cvParam"`
	Binary        string    `xml:"binary"`
}

type spectrumXML struct {
	Index        int               `xml:"index,attr"`
	ID           string            `xml:"id,attr"`
	CvParams     []cvParam         `xml:"cvParam"`
	BinaryArrays []binaryDataArray `xml:"binaryDataArrayList>binaryDataArray"`
}

// Parse streams an mzML document and extracts one SpectrumRecord per
// retained spectrum. Only spectra with ms level 1 are retained; full
// peak arrays are decoded for those. Per-array decode failures are
// attached to the owning record and never abort the pass.
func Parse(r io.Reader) (*Result, error) {
	dec := xml.NewDecoder(r)
	res := &Result{CountsByMSLevel: make(map[string]int)}

	// The default namespace is resolved once from the root element and
	// reused for every spectrum lookup. Documents with and without a
	// default namespace must extract identically.
	sawRoot := false
	spectraSeen := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mzml: malformed XML: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !sawRoot {
			sawRoot = true
			res.Namespace = se.Name.Space
			continue
		}

		if se.Name.Local != "spectrum" || se.Name.Space != res.Namespace {
			continue
		}

		var sx spectrumXML
		if err := dec.DecodeElement(&sx, &se); err != nil {
			return nil, fmt.Errorf("mzml: malformed XML: %w", err)
		}
		spectraSeen++

		rec, msLevel := buildRecord(&sx)
		res.CountsByMSLevel[msLevel]++

		// Full scan arrays and KMD noise analysis apply to MS1 precursor
		// scans only; other levels are dropped, not flagged.
		if msLevel != "1" {
			continue
		}

		for i := range sx.BinaryArrays {
			kind, values, err := decodeBinaryArray(&sx.BinaryArrays[i], rec.ID)
			if err != nil {
				rec.DecodeErrors = append(rec.DecodeErrors, err.Error())
				res.DecodeErrorCount++
				continue
			}
			switch kind {
			case KindMZ:
				rec.MZArray = values
			case KindIntensity:
				rec.IntensityArray = values
			}
		}

		res.Records = append(res.Records, rec)
	}

	if spectraSeen == 0 {
		return nil, ErrNoSpectra
	}

	return res, nil
}

// buildRecord extracts the scan id and spectrum-scoped cvParam values.
// Missing parameters yield nil fields, never an error.
func buildRecord(sx *spectrumXML) (core.SpectrumRecord, string) {
	id := sx.ID
	if m := scanIDPattern.FindString(id); m != "" {
		id = m
	}

	rec := core.SpectrumRecord{ID: id}
	msLevel := ""

	for _, p := range sx.CvParams {
		switch p.Name {
		case "ms level":
			msLevel = p.Value
		case "base peak m/z":
			v := core.NormalizeDecimal(p.Value)
			rec.BasePeakMZ = &v
		case "base peak intensity":
			v := core.NormalizeDecimal(p.Value)
			rec.BasePeakIntensity = &v
		}
	}

	rec.MSLevel = msLevel
	return rec, msLevel
}
