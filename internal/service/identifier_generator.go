package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/nu-admissions-api/internal/models"
)

const (
	universityPrefix = "NU"
	ugcPrefix        = "UGC"
	ugcSeqWidth      = 6
	ugcMaxSeq        = 999_999
	// ugcFallbackSpan keeps timestamp-derived floors below 900000 so the
	// counter has room to grow inside six digits.
	ugcFallbackSpan = 900_000
)

// ErrSequenceExhausted reports a UGC counter that no longer fits six digits.
var ErrSequenceExhausted = errors.New("identifier sequence exhausted")

// IssuedIdentifiers is one generated University/UGC pair with the sequences behind it.
type IssuedIdentifiers struct {
	UniversityID  string
	UGCID         string
	UniversitySeq int
	UGCSeq        int
}

// IdentifierGenerator issues University and UGC identifiers. Each prefix has
// its own counter row advanced atomically inside the caller's transaction;
// the ledger only supplies the floor the counter may not fall below.
type IdentifierGenerator struct {
	logger *zap.Logger
}

// NewIdentifierGenerator constructs a generator.
func NewIdentifierGenerator(logger *zap.Logger) *IdentifierGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentifierGenerator{logger: logger}
}

// Next reserves the next identifier pair for programCode in the year of issuedAt.
func (g *IdentifierGenerator) Next(ctx context.Context, store IdentifierStore, programCode string, issuedAt time.Time) (*IssuedIdentifiers, error) {
	program := normaliseProgramCode(programCode)
	if program == "" {
		return nil, fmt.Errorf("generate identifiers: program code is required")
	}
	issuedAt = issuedAt.UTC()

	uniPrefix := UniversityIDPrefix(program, issuedAt)
	issued, err := store.ListIssued(ctx, models.IdentifierKindUniversity, program, uniPrefix)
	if err != nil {
		return nil, err
	}
	uniFloor := 1
	if maxSeq, ok := maxSequence(issued, uniPrefix, 0); ok {
		uniFloor = maxSeq + 1
	}
	uniSeq, err := store.AdvanceSequence(ctx, uniPrefix, uniFloor)
	if err != nil {
		return nil, err
	}

	ugcYearPrefix := UGCIDPrefix(issuedAt)
	issued, err = store.ListIssued(ctx, models.IdentifierKindUGC, "", ugcYearPrefix)
	if err != nil {
		return nil, err
	}
	ugcFloor := 1
	if maxSeq, ok := maxSequence(issued, ugcYearPrefix, ugcSeqWidth); ok {
		ugcFloor = maxSeq + 1
	} else if len(issued) > 0 {
		ugcFloor = int(issuedAt.Unix()%ugcFallbackSpan) + 1
		g.logger.Warn("no parseable UGC identifier in ledger, using timestamp-derived sequence",
			zap.String("prefix", ugcYearPrefix),
			zap.Int("ledger_rows", len(issued)),
			zap.Int("floor", ugcFloor))
	}
	ugcSeq, err := store.AdvanceSequence(ctx, ugcYearPrefix, ugcFloor)
	if err != nil {
		return nil, err
	}
	if ugcSeq > ugcMaxSeq {
		return nil, fmt.Errorf("%w: %s reached %d", ErrSequenceExhausted, ugcYearPrefix, ugcSeq)
	}

	return &IssuedIdentifiers{
		UniversityID:  fmt.Sprintf("%s%03d", uniPrefix, uniSeq),
		UGCID:         fmt.Sprintf("%s%0*d", ugcYearPrefix, ugcSeqWidth, ugcSeq),
		UniversitySeq: uniSeq,
		UGCSeq:        ugcSeq,
	}, nil
}

// UniversityIDPrefix returns NU{yy}{PROGRAM}.
func UniversityIDPrefix(programCode string, issuedAt time.Time) string {
	return fmt.Sprintf("%s%02d%s", universityPrefix, issuedAt.UTC().Year()%100, normaliseProgramCode(programCode))
}

// UGCIDPrefix returns UGC{yyyy}.
func UGCIDPrefix(issuedAt time.Time) string {
	return fmt.Sprintf("%s%04d", ugcPrefix, issuedAt.UTC().Year())
}

// BatchLabel names the intake a student joins, e.g. CSE-24.
func BatchLabel(programCode string, issuedAt time.Time) string {
	return fmt.Sprintf("%s-%02d", normaliseProgramCode(programCode), issuedAt.UTC().Year()%100)
}

// maxSequence returns the highest numeric suffix among ids carrying prefix.
// width 0 accepts any number of digits.
func maxSequence(ids []string, prefix string, width int) (int, bool) {
	best, found := 0, false
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		suffix := id[len(prefix):]
		if suffix == "" || (width > 0 && len(suffix) != width) {
			continue
		}
		seq, err := strconv.Atoi(suffix)
		if err != nil || seq < 0 || strings.ContainsAny(suffix, "+-") {
			continue
		}
		if !found || seq > best {
			best, found = seq, true
		}
	}
	return best, found
}

func normaliseProgramCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
