package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/model"
)

type createRequestBody struct {
	FormatsMask uint8  `json:"formatsMask" binding:"required"`
	Description string `json:"description" binding:"required"`
	Budget      string `json:"budget" binding:"required"`
}

func (h *Handler) CreateRequest(ctx *gin.Context) {
	var body createRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "bind request")
		return
	}

	result, err := h.ctrl.CreateRequest(ctx.Request.Context(), body.FormatsMask, body.Description, body.Budget)
	if err != nil {
		handleBrokerError(ctx, err, "create request")
		return
	}
	ctx.JSON(http.StatusCreated, result)
}

func (h *Handler) GetRequest(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "parse request id")
		return
	}

	req, err := h.ctrl.GetRequest(id)
	if err != nil {
		handleBrokerError(ctx, err, "get request")
		return
	}
	ctx.JSON(http.StatusOK, req)
}

func (h *Handler) ListRequest(ctx *gin.Context) {
	var opts model.RequestListOptions
	if err := ctx.ShouldBindQuery(&opts); err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "bind list options")
		return
	}

	items, err := h.ctrl.ListRequest(&opts)
	if err != nil {
		handleBrokerError(ctx, err, "list requests")
		return
	}
	ctx.JSON(http.StatusOK, model.RequestList{
		Metadata: model.ListMeta{Total: uint64(len(items))},
		Items:    items,
	})
}

func (h *Handler) CancelRequest(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "parse request id")
		return
	}

	txHash, err := h.ctrl.CancelRequest(ctx.Request.Context(), id)
	if err != nil {
		handleBrokerError(ctx, err, "cancel request")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"txHash": txHash})
}

func (h *Handler) SyncRequest(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		handleBrokerError(ctx, errors.WithStatusCode(err, http.StatusBadRequest), "parse request id")
		return
	}

	req, err := h.ctrl.SyncRequest(ctx.Request.Context(), id)
	if err != nil {
		handleBrokerError(ctx, err, "sync request")
		return
	}
	ctx.JSON(http.StatusOK, req)
}

func (h *Handler) SyncBuyerRequests(ctx *gin.Context) {
	n, err := h.ctrl.SyncBuyerRequests(ctx.Request.Context(), ctx.Param("address"))
	if err != nil {
		handleBrokerError(ctx, err, "sync buyer requests")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"synced": n})
}

func parseID(ctx *gin.Context) (uint64, error) {
	return strconv.ParseUint(ctx.Param("id"), 10, 64)
}
