// Package sqlite exports augmented spectrum records and the noise-analysis
// summary to a SQLite database file.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/cail-lab/kmdnoise/pkg/core"
	"github.com/cail-lab/kmdnoise/pkg/noise"
	_ "github.com/mattn/go-sqlite3"
)

// Date format for HeaderTable (ISO 8601)
const headerDateFormat = "2006-01-02"

// Writer handles writing spectrum records to SQLite database files.
type Writer struct {
	db       *sql.DB
	scanStmt *sql.Stmt
	scanID   int
}

// NewWriter creates a new SQLite writer and its schema.
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:     db,
		scanID: 1,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema.
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ScanTable (
		ScanId INTEGER PRIMARY KEY,
		NativeId TEXT,
		MSLevel TEXT,
		BasePeakMZ DOUBLE,
		BasePeakIntensity DOUBLE,
		KendrickMass DOUBLE,
		KMDFraction DOUBLE,
		KMDRound DOUBLE,
		blobMass BLOB,
		blobIntensity BLOB,
		blobKendrickMass BLOB,
		blobKMDFraction BLOB,
		blobKMDRound BLOB,
		DecodeErrors INTEGER
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		SourceFile TEXT,
		RepeatUnit TEXT,
		KMDVariant TEXT
	);

	CREATE TABLE IF NOT EXISTS AnalysisTable (
		NoiseLevel DOUBLE,
		NoiseDefined BOOL,
		LowerX DOUBLE,
		UpperX DOUBLE,
		BandMargin DOUBLE,
		Slope DOUBLE,
		InBandCount INTEGER,
		PooledCount INTEGER
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion.
func (w *Writer) prepareStatements() error {
	var err error

	w.scanStmt, err = w.db.Prepare(`
		INSERT INTO ScanTable (
			ScanId, NativeId, MSLevel, BasePeakMZ, BasePeakIntensity,
			KendrickMass, KMDFraction, KMDRound,
			blobMass, blobIntensity, blobKendrickMass, blobKMDFraction, blobKMDRound,
			DecodeErrors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare scan statement: %w", err)
	}

	return nil
}

// WriteRecord writes a single spectrum record to the database.
func (w *Writer) WriteRecord(rec *core.SpectrumRecord) error {
	_, err := w.scanStmt.Exec(
		w.scanID,
		rec.ID,
		rec.MSLevel,
		optionalDecimal(rec.BasePeakMZ),
		optionalDecimal(rec.BasePeakIntensity),
		optionalFloat(rec.KendrickMass),
		optionalFloat(rec.KMDFraction),
		optionalFloat(rec.KMDRound),
		encodeFloat64Blob(rec.MZArray),
		encodeFloat64Blob(rec.IntensityArray),
		encodeFloat64Blob(rec.KendrickMassArray),
		encodeFloat64Blob(rec.KMDFractionArray),
		encodeFloat64Blob(rec.KMDRoundArray),
		len(rec.DecodeErrors),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan %s: %w", rec.ID, err)
	}

	w.scanID++
	return nil
}

// WriteAnalysis records the noise estimate and the band parameters it was
// computed with. An undefined estimate stores NULL, never zero.
func (w *Writer) WriteAnalysis(est noise.Estimate, lowerX, upperX, margin, slope float64) error {
	var level interface{}
	if est.Defined {
		level = est.Noise
	}

	_, err := w.db.Exec(`
		INSERT INTO AnalysisTable (NoiseLevel, NoiseDefined, LowerX, UpperX, BandMargin, Slope, InBandCount, PooledCount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, level, est.Defined, lowerX, upperX, margin, slope, est.InBand, est.Total)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	return nil
}

// Finalize writes the header table and closes the database.
func (w *Writer) Finalize(sourceFile, repeatUnit, kmdVariant string) error {
	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, SourceFile, RepeatUnit, KMDVariant)
		VALUES (?, ?, ?, ?, ?)
	`, 1, time.Now().Format(headerDateFormat), sourceFile, repeatUnit, kmdVariant)
	if err != nil {
		return fmt.Errorf("failed to insert header: %w", err)
	}

	if w.scanStmt != nil {
		w.scanStmt.Close()
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Close closes the database connection without writing a header, for
// abandoning a partial export.
func (w *Writer) Close() error {
	if w.scanStmt != nil {
		w.scanStmt.Close()
	}
	return w.db.Close()
}

// encodeFloat64Blob encodes values as a little-endian float64 blob.
// Nil input stores NULL.
func encodeFloat64Blob(values []float64) []byte {
	if values == nil {
		return nil
	}
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// optionalDecimal converts a nullable decimal string to a SQL value,
// storing NULL for absent or unparseable input.
func optionalDecimal(s *string) interface{} {
	if s == nil {
		return nil
	}
	if v, ok := core.ParseDecimal(*s); ok {
		return v
	}
	return nil
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
