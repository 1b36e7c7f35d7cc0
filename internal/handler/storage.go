package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridata-labs/marketplace-broker/common/errors"
)

func (h *Handler) GetReport(ctx *gin.Context) {
	ref := ctx.Param("ref")
	if ref == "" {
		handleBrokerError(ctx, errors.WithStatusCode(errors.New("missing report reference"), http.StatusBadRequest), "")
		return
	}

	data, err := h.reports.GetReport(ctx.Request.Context(), ref)
	if err != nil {
		handleBrokerError(ctx, err, "fetch report")
		return
	}
	ctx.Data(http.StatusOK, "application/json", data)
}

// ListObjects browses archived dataset objects under a key prefix.
func (h *Handler) ListObjects(ctx *gin.Context) {
	infos, err := h.objects.List(ctx.Request.Context(), ctx.Query("prefix"))
	if err != nil {
		handleBrokerError(ctx, err, "list objects")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"metadata": gin.H{"total": len(infos)}, "items": infos})
}

// PresignUpload hands the client a time-limited URL so large dataset
// archives never transit the broker.
func (h *Handler) PresignUpload(ctx *gin.Context) {
	key := ctx.Query("key")
	if key == "" {
		handleBrokerError(ctx, errors.WithStatusCode(errors.New("missing object key"), http.StatusBadRequest), "")
		return
	}

	url, err := h.objects.PresignPut(ctx.Request.Context(), key)
	if err != nil {
		handleBrokerError(ctx, err, "presign upload")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) PresignDownload(ctx *gin.Context) {
	key := ctx.Query("key")
	if key == "" {
		handleBrokerError(ctx, errors.WithStatusCode(errors.New("missing object key"), http.StatusBadRequest), "")
		return
	}

	url, err := h.objects.PresignGet(ctx.Request.Context(), key)
	if err != nil {
		handleBrokerError(ctx, err, "presign download")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"url": url})
}
