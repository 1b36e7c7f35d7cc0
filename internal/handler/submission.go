package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/internal/ctrl"
	"github.com/veridata-labs/marketplace-broker/model"
)

func (h *Handler) SubmitDataset(ctx *gin.Context) {
	var params ctrl.SubmitDatasetParams
	if err := ctx.ShouldBindJSON(&params); err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "bind submission")
		return
	}

	result, err := h.ctrl.SubmitDataset(ctx.Request.Context(), &params)
	if err != nil {
		handleBrokerError(ctx, err, "submit dataset")
		return
	}
	ctx.JSON(http.StatusCreated, result)
}

func (h *Handler) GetSubmission(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "parse submission id")
		return
	}

	sub, err := h.ctrl.GetSubmission(id)
	if err != nil {
		handleBrokerError(ctx, err, "get submission")
		return
	}
	ctx.JSON(http.StatusOK, sub)
}

func (h *Handler) ListSubmission(ctx *gin.Context) {
	var opts model.SubmissionListOptions
	if err := ctx.ShouldBindQuery(&opts); err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "bind list options")
		return
	}

	items, err := h.ctrl.ListSubmission(&opts)
	if err != nil {
		handleBrokerError(ctx, err, "list submissions")
		return
	}
	ctx.JSON(http.StatusOK, model.SubmissionList{
		Metadata: model.ListMeta{Total: uint64(len(items))},
		Items:    items,
	})
}

func (h *Handler) SyncSubmission(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "parse submission id")
		return
	}

	sub, err := h.ctrl.SyncSubmission(ctx.Request.Context(), id)
	if err != nil {
		handleBrokerError(ctx, err, "sync submission")
		return
	}
	ctx.JSON(http.StatusOK, sub)
}

func (h *Handler) SyncSellerSubmissions(ctx *gin.Context) {
	n, err := h.ctrl.SyncSellerSubmissions(ctx.Request.Context(), ctx.Param("address"))
	if err != nil {
		handleBrokerError(ctx, err, "sync seller submissions")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"synced": n})
}

func (h *Handler) GetVerification(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "parse submission id")
		return
	}

	v, err := h.ctrl.GetVerification(id)
	if err != nil {
		handleBrokerError(ctx, err, "get verification")
		return
	}
	ctx.JSON(http.StatusOK, v)
}

func (h *Handler) ListOperations(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "parse submission id")
		return
	}

	ops, err := h.db.ListOperationLog(id)
	if err != nil {
		handleBrokerError(ctx, err, "list operations")
		return
	}
	ctx.JSON(http.StatusOK, ops)
}
