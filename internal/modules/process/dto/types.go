package dto

import (
	"time"

	"retort/internal/modules/process/domain"
)

// Reading is shared with callers that may not import the domain package.
type Reading = domain.Reading

type CreateSessionInput struct {
	Customer     string
	Product      string
	Contact      string
	ProcessDate  time.Time
	BatchLabel   string
	Operator     string
	PressureUnit string
	Baskets      [3]int
	InitialCount int
	FinalCount   int
	Readings     []domain.Reading
}

type AppendReadingsInput struct {
	SessionID string
	Readings  []domain.Reading
}

type ImportInput struct {
	SessionID string
	Path      string
	Format    string
}

type AmendInput struct {
	SessionID string
}

type SaveResultInput struct {
	SessionID      string
	ParamsKey      string
	ReadingsDigest string
	TotalF0        float64
	HoldingVerdict bool
	ReadingCount   int
}

type SessionOutput struct {
	ID           string
	AmendsID     string
	Customer     string
	Product      string
	BatchLabel   string
	Operator     string
	ProcessDate  time.Time
	CreatedAt    time.Time
	SealedAt     time.Time
	ReadingCount int
	Warnings     []string
}

type SessionDetailOutput struct {
	SessionOutput
	Contact      string
	PressureUnit string
	Baskets      [3]int
	InitialCount int
	FinalCount   int
	Readings     []domain.Reading
	Last         *ResultOutput
}

type AppendOutput struct {
	SessionID    string
	Appended     int
	ReadingCount int
	Warnings     []string
}

type ImportOutput struct {
	SessionID string
	Total     int
	Imported  int
	Failed    int
	Errors    []string
	Warnings  []string
}

type ResultOutput struct {
	SessionID      string
	ParamsKey      string
	ReadingsDigest string
	TotalF0        float64
	HoldingVerdict bool
	ReadingCount   int
	ComputedAt     time.Time
}
