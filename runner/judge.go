package runner

import (
	"context"
	"fmt"

	"github.com/npuboj/judgecore/language"
	"github.com/npuboj/judgecore/pkg/diff"
	"github.com/npuboj/judgecore/types"
	"go.uber.org/zap"
)

// CompileAndJudge runs the inputs and compares each successful output
// with the answer of the same index
func (r *Runner) CompileAndJudge(ctx context.Context, src string, inputs, answers [][]byte, limit types.Limitation) ([]types.Verdict, error) {
	if len(inputs) != len(answers) {
		return nil, fmt.Errorf("%w: %d inputs, %d answers", language.ErrLengthMismatch, len(inputs), len(answers))
	}
	outcomes := r.CompileAndRun(ctx, src, inputs, limit)
	return judge(outcomes, answers, r.logger), nil
}

// judge converts outcomes to verdicts. A single CompileError or a
// collapsed batch yields a single propagated verdict.
func judge(outcomes []types.Outcome, answers [][]byte, logger *zap.Logger) []types.Verdict {
	if len(outcomes) > 0 && outcomes[0].Code == types.CodeCompileError {
		return []types.Verdict{types.VerdictCompileError}
	}
	if len(outcomes) != len(answers) {
		if len(outcomes) == 0 {
			return nil
		}
		return []types.Verdict{types.VerdictFromCode(outcomes[0].Code)}
	}

	rt := make([]types.Verdict, 0, len(outcomes))
	for i, o := range outcomes {
		if o.Code != types.CodeSuccess {
			rt = append(rt, types.VerdictFromCode(o.Code))
			continue
		}
		if err := diff.Compare(answers[i], o.Stdout); err != nil {
			logger.Debug("wrong answer", zap.Int("test", i), zap.Error(err))
			rt = append(rt, types.VerdictFail)
			continue
		}
		rt = append(rt, types.VerdictPass)
	}
	return rt
}
