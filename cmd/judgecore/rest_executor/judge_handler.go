package restexecutor

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/npuboj/judgecore/language"
	"github.com/npuboj/judgecore/worker"
	"go.uber.org/zap"
)

type judgeHandle struct {
	worker worker.Worker
	logger *zap.Logger
}

// NewJudgeHandle creates a new run / judge handle
func NewJudgeHandle(worker worker.Worker, logger *zap.Logger) Register {
	return &judgeHandle{
		worker: worker,
		logger: logger,
	}
}

func (h *judgeHandle) Register(r *gin.Engine) {
	r.POST("/run", h.handleRun)
	r.POST("/judge", h.handleJudge)
}

func (h *judgeHandle) handleRun(ctx *gin.Context) {
	rt, ok := h.submit(ctx, false)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, RunResponse{
		RequestID: rt.RequestID,
		Outcomes:  convertOutcomes(rt.Outcomes),
	})
}

func (h *judgeHandle) handleJudge(ctx *gin.Context) {
	rt, ok := h.submit(ctx, true)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, JudgeResponse{
		RequestID: rt.RequestID,
		Verdicts:  rt.Verdicts,
	})
}

func (h *judgeHandle) submit(ctx *gin.Context, judge bool) (worker.Response, bool) {
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(err)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, err.Error())
		return worker.Response{}, false
	}
	if err := req.Limit.Validate(); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, err.Error())
		return worker.Response{}, false
	}
	if judge && len(req.Inputs) != len(req.Answers) {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, language.ErrLengthMismatch.Error())
		return worker.Response{}, false
	}

	r := convertRequest(&req, judge)
	h.logger.Debug("request", zap.Stringer("request", r))
	rt := <-h.worker.Submit(ctx.Request.Context(), r)
	h.logger.Debug("response", zap.Stringer("response", rt))
	if rt.Error != nil {
		ctx.Error(rt.Error)
		status := http.StatusInternalServerError
		if errors.Is(rt.Error, language.ErrLengthMismatch) {
			status = http.StatusBadRequest
		}
		ctx.AbortWithStatusJSON(status, rt.Error.Error())
		return worker.Response{}, false
	}
	return rt, true
}
