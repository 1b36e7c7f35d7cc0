package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/contract"
	"github.com/veridata-labs/marketplace-broker/internal/ctrl"
	"github.com/veridata-labs/marketplace-broker/internal/db"
	"github.com/veridata-labs/marketplace-broker/internal/quality"
	"github.com/veridata-labs/marketplace-broker/internal/storage"
	"github.com/veridata-labs/marketplace-broker/monitor"
)

type Handler struct {
	ctrl    *ctrl.Ctrl
	db      *db.DB
	reports *quality.CASPublisher
	objects *storage.ObjectStore
	logger  log.Logger

	allowOrigins  []string
	enableMonitor bool
}

func New(
	ctrl *ctrl.Ctrl,
	database *db.DB,
	reports *quality.CASPublisher,
	objects *storage.ObjectStore,
	logger log.Logger,
	allowOrigins []string,
	enableMonitor bool,
) *Handler {
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	return &Handler{
		ctrl:          ctrl,
		db:            database,
		reports:       reports,
		objects:       objects,
		logger:        logger,
		allowOrigins:  allowOrigins,
		enableMonitor: enableMonitor,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	group := r.Group("/v1")
	group.Use(cors.New(cors.Config{
		AllowOrigins: h.allowOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders: []string{"*"},
	}))
	if h.enableMonitor {
		group.Use(monitor.TrackMetrics())
	}

	// request
	group.GET("/request", h.ListRequest)
	group.GET("/request/:id", h.GetRequest)
	group.POST("/request", h.CreateRequest)
	group.POST("/request/:id/cancel", h.CancelRequest)
	group.POST("/request/:id/sync", h.SyncRequest)

	// submission
	group.GET("/submission", h.ListSubmission)
	group.GET("/submission/:id", h.GetSubmission)
	group.POST("/submission", h.SubmitDataset)
	group.POST("/submission/:id/sync", h.SyncSubmission)
	group.GET("/submission/:id/verification", h.GetVerification)
	group.GET("/submission/:id/operations", h.ListOperations)

	// account-scoped repair
	group.POST("/sync/buyer/:address", h.SyncBuyerRequests)
	group.POST("/sync/seller/:address", h.SyncSellerSubmissions)

	// reports and bulk storage
	group.GET("/report/:ref", h.GetReport)
	group.GET("/storage/objects", h.ListObjects)
	group.GET("/storage/upload-url", h.PresignUpload)
	group.GET("/storage/download-url", h.PresignDownload)
}

// handleBrokerError maps domain sentinels to HTTP statuses before writing
// the error body.
func handleBrokerError(ctx *gin.Context, err error, context string) {
	if context != "" {
		err = errors.Wrap(err, "Broker: "+context)
	}

	switch {
	case errors.Is(err, contract.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		err = errors.WithStatusCode(err, http.StatusNotFound)
	case errors.Is(err, contract.ErrInvalidFormatsMask), errors.Is(err, contract.ErrUnknownFormat):
		err = errors.WithStatusCode(err, http.StatusBadRequest)
	case errors.Is(err, db.ErrDuplicateVerification):
		err = errors.WithStatusCode(err, http.StatusConflict)
	case errors.Is(err, contract.ErrSignerMissing):
		err = errors.WithStatusCode(err, http.StatusForbidden)
	}
	errors.Response(ctx, err)
}
