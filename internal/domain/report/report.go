// Package report defines the summary record derived from a caller's raw
// marks and the grading rule applied to its average.
package report

import (
	"encoding/json"
	"math"
)

// Grade is a letter grade derived from an average.
type Grade string

// Letter grades, best first.
const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// Lower bounds (inclusive) of each grade band.
const (
	thresholdA = 90
	thresholdB = 75
	thresholdC = 60
)

// Record is one derived report. Average and Grade are computed by New and
// never recomputed; a Record has no mutation path after construction.
type Record struct {
	StudentName string  `json:"studentName"`
	TotalMarks  uint32  `json:"totalMarks"`
	NumSubjects uint32  `json:"numSubjects"`
	Average     Average `json:"average"`
	Grade       Grade   `json:"grade"`
}

// New derives a Record from caller-supplied marks. No argument is validated:
// a zero numSubjects yields a non-finite average (NaN for 0/0, +Inf otherwise)
// which is stored as is.
func New(studentName string, totalMarks, numSubjects uint32) Record {
	avg := float32(totalMarks) / float32(numSubjects)
	return Record{
		StudentName: studentName,
		TotalMarks:  totalMarks,
		NumSubjects: numSubjects,
		Average:     Average(avg),
		Grade:       GradeFor(avg),
	}
}

// GradeFor maps an average to a grade. Bands are evaluated top-down with an
// inclusive lower bound; NaN matches no band and falls through to D.
func GradeFor(avg float32) Grade {
	switch {
	case avg >= thresholdA:
		return GradeA
	case avg >= thresholdB:
		return GradeB
	case avg >= thresholdC:
		return GradeC
	default:
		return GradeD
	}
}

// Finite reports whether the record's average is a finite number.
func (r Record) Finite() bool {
	f := float64(r.Average)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Average is a float32 that survives JSON encoding when non-finite.
// encoding/json refuses NaN and ±Inf, so those are written as the strings
// "NaN", "Infinity" and "-Infinity".
type Average float32

// Non-finite wire spellings.
const (
	wireNaN    = "NaN"
	wirePosInf = "Infinity"
	wireNegInf = "-Infinity"
)

// MarshalJSON implements json.Marshaler.
func (a Average) MarshalJSON() ([]byte, error) {
	f := float64(a)
	switch {
	case math.IsNaN(f):
		return json.Marshal(wireNaN)
	case math.IsInf(f, 1):
		return json.Marshal(wirePosInf)
	case math.IsInf(f, -1):
		return json.Marshal(wireNegInf)
	}
	return json.Marshal(float32(a))
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Average) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		switch s {
		case wireNaN:
			*a = Average(math.NaN())
		case wirePosInf:
			*a = Average(math.Inf(1))
		case wireNegInf:
			*a = Average(math.Inf(-1))
		default:
			return ErrInvalidAverage
		}
		return nil
	}
	var f float32
	if err := json.Unmarshal(b, &f); err != nil {
		return ErrInvalidAverage
	}
	*a = Average(f)
	return nil
}
