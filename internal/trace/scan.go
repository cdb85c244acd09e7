package trace

import (
	"bytes"
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/muurk/feathertrace/internal/logging"
)

var magicBytes = binary.LittleEndian.AppendUint32(nil, Magic)

// Scanner searches flash images for a FeatherTrace record.
type Scanner struct {
	logger *zap.Logger
}

// NewScanner creates a Scanner that reports rejected candidates to logger.
// A nil logger disables logging.
func NewScanner(logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{logger: logger}
}

// Locate scans buf with a silent Scanner.
func Locate(buf []byte) (*FaultReport, error) {
	return NewScanner(nil).Locate(buf)
}

// Locate returns the first structurally valid record in buf. A candidate is
// accepted when its magic word and primary marker match; the remaining
// markers only affect MarkersValid. buf is never modified.
//
// When nothing is accepted the error is a *NotFoundError, which matches
// ErrNotFound and, if the last candidate ran off the end of buf, ErrTruncated.
func (s *Scanner) Locate(buf []byte) (*FaultReport, error) {
	nf := &NotFoundError{TruncatedAt: -1}
	start := 0
	for start <= len(buf)-len(magicBytes) {
		i := bytes.Index(buf[start:], magicBytes)
		if i < 0 {
			break
		}
		idx := start + i
		start = idx + len(magicBytes)
		nf.Candidates++

		if len(buf)-idx < RecordSize {
			s.logger.Debug("Candidate truncated",
				zap.Int("offset", idx),
				zap.Int("available", len(buf)-idx))
			nf.TruncatedAt = idx
			continue
		}
		nf.TruncatedAt = -1

		report, err := DecodeAt(buf, idx)
		if err != nil {
			s.logger.Debug("Candidate failed to decode", zap.Int("offset", idx), zap.Error(err))
			nf.Rejected = append(nf.Rejected, idx)
			continue
		}
		if !report.HeaderValid() {
			s.logger.Debug("Rejected magic collision",
				zap.Int("offset", idx),
				logging.Bytes("header", buf[idx:idx+32]))
			nf.Rejected = append(nf.Rejected, idx)
			continue
		}

		s.logger.Info("Found FeatherTrace record",
			zap.Int("offset", idx),
			zap.Stringer("cause", report.Cause),
			zap.Bool("markers_valid", report.MarkersValid))
		if !report.MarkersValid {
			s.logger.Warn("Record markers do not match, data may be corrupted",
				zap.Strings("bad_markers", report.BadMarkers))
		}
		return report, nil
	}

	s.logger.Debug("No FeatherTrace record", zap.Int("candidates", nf.Candidates), zap.Int("size", len(buf)))
	return nil, nf
}
