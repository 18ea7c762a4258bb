package worker

import (
	"fmt"

	"github.com/npuboj/judgecore/types"
)

// Request defines single worker request
type Request struct {
	RequestID string
	Source    string
	Inputs    [][]byte

	// Answers selects judging when not nil, it must have the same
	// length as Inputs
	Answers [][]byte

	Limit types.Limitation
}

// Response defines worker response for single request
type Response struct {
	RequestID string
	Outcomes  []types.Outcome
	Verdicts  []types.Verdict
	Error     error
}

func (r *Request) judge() bool {
	return r.Answers != nil
}

func (r *Request) String() string {
	return fmt.Sprintf("Request[ID=%s,Source=%dB,Inputs=%d,Judge=%v,%v]",
		r.RequestID, len(r.Source), len(r.Inputs), r.judge(), r.Limit)
}

func (r Response) String() string {
	if r.Error != nil {
		return fmt.Sprintf("Response[ID=%s,Error=%v]", r.RequestID, r.Error)
	}
	return fmt.Sprintf("Response[ID=%s,Outcomes=%d,Verdicts=%v]", r.RequestID, len(r.Outcomes), r.Verdicts)
}
