package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/config"
	marketcontract "github.com/veridata-labs/marketplace-broker/internal/contract"
	"github.com/veridata-labs/marketplace-broker/internal/ctrl"
	database "github.com/veridata-labs/marketplace-broker/internal/db"
	"github.com/veridata-labs/marketplace-broker/internal/handler"
	"github.com/veridata-labs/marketplace-broker/internal/quality"
	"github.com/veridata-labs/marketplace-broker/internal/storage"
	"github.com/veridata-labs/marketplace-broker/internal/synchronizer"
	"github.com/veridata-labs/marketplace-broker/monitor"
)

func main() {
	conf := config.GetConfig()

	logger, err := log.GetLogger(&conf.Logger)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	logger = logger.WithFields(logrus.Fields{"name": "marketplace-server"})
	logger.Info("Starting marketplace broker")

	db, err := database.NewDB(conf, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Error("Failed to initialize database")
		panic(err)
	}
	if err := db.Migrate(); err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Error("Failed to migrate database")
		panic(err)
	}

	ledger, err := marketcontract.NewLedgerClient(conf, logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Error("Failed to initialize ledger client")
		panic(err)
	}
	defer ledger.Close()

	engine := gin.New()

	if conf.Monitor.Enable {
		monitor.InitPrometheus("marketplace-server")
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
		logger.Info("Prometheus monitoring enabled")
	}

	sync := synchronizer.New(ledger, db, logger)
	ctrlIns := ctrl.New(ledger, ledger.Market(), sync, db, logger, conf.Monitor.Enable)

	cas := storage.NewCAS(conf.Storage.IpfsApiAddr)
	reports := quality.NewCASPublisher(cas, logger)

	objects, err := storage.NewObjectStore(&conf.Storage)
	if err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Error("Failed to initialize object store")
		panic(err)
	}
	if err := objects.EnsureBucket(context.Background()); err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Error("Failed to prepare dataset bucket")
		panic(err)
	}

	h := handler.New(ctrlIns, db, reports, objects, logger, conf.AllowOrigins, conf.Monitor.Enable)
	h.Register(engine)

	// Listen and serve, configure port with PORT=X
	if err := engine.Run(); err != nil {
		logger.WithFields(logrus.Fields{"error": err}).Error("Failed to start HTTP server")
		panic(err)
	}
}
