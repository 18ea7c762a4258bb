package restexecutor

import (
	"github.com/npuboj/judgecore/types"
	"github.com/npuboj/judgecore/worker"
)

// Request defines a run or judge request
type Request struct {
	RequestID string           `json:"requestId"`
	Source    string           `json:"source"`
	Inputs    []string         `json:"inputs"`
	Answers   []string         `json:"answers,omitempty"`
	Limit     types.Limitation `json:"limit"`
}

// Outcome is the json form of a single execution outcome
type Outcome struct {
	Code       types.Code `json:"code"`
	Stdout     string     `json:"stdout"`
	Stderr     string     `json:"stderr"`
	ExitStatus int        `json:"exitStatus"`
	Error      string     `json:"error,omitempty"`
	Time       uint64     `json:"time"`   // ns
	Memory     uint64     `json:"memory"` // byte
}

// RunResponse defines the response of /run
type RunResponse struct {
	RequestID string    `json:"requestId"`
	Outcomes  []Outcome `json:"outcomes"`
}

// JudgeResponse defines the response of /judge
type JudgeResponse struct {
	RequestID string          `json:"requestId"`
	Verdicts  []types.Verdict `json:"verdicts"`
}

func convertRequest(r *Request, judge bool) *worker.Request {
	req := &worker.Request{
		RequestID: r.RequestID,
		Source:    r.Source,
		Inputs:    toBytes(r.Inputs),
		Limit:     r.Limit,
	}
	if judge {
		req.Answers = toBytes(r.Answers)
		if req.Answers == nil {
			req.Answers = [][]byte{}
		}
	}
	return req
}

func convertOutcomes(outcomes []types.Outcome) []Outcome {
	rt := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		rt = append(rt, Outcome{
			Code:       o.Code,
			Stdout:     string(o.Stdout),
			Stderr:     string(o.Stderr),
			ExitStatus: o.ExitStatus,
			Error:      o.Error,
			Time:       uint64(o.Time),
			Memory:     uint64(o.Memory),
		})
	}
	return rt
}

func toBytes(s []string) [][]byte {
	if s == nil {
		return nil
	}
	rt := make([][]byte, 0, len(s))
	for _, v := range s {
		rt = append(rt, []byte(v))
	}
	return rt
}
