package skew

import "fmt"

// Status is the confidence tier of a single estimator's answer.
type Status int

const (
	// Believed means exactly one unambiguous candidate.
	Believed Status = iota
	// NeedCheck means one candidate that survived ties along the way.
	NeedCheck
	// NotAResult means zero or several equally scored candidates.
	NotAResult
)

func (s Status) String() string {
	switch s {
	case Believed:
		return "believed"
	case NeedCheck:
		return "need_check"
	case NotAResult:
		return "not_a_result"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is one estimator's output. Angle is the correction in degrees
// (counter-clockwise positive) and is meaningless when Status is NotAResult.
type Result struct {
	Angle      float64   `json:"angle"`
	Status     Status    `json:"status"`
	Candidates []float64 `json:"candidates"`
}

// Candidate is a scored angle.
type Candidate struct {
	Angle float64
	Score float64
}
