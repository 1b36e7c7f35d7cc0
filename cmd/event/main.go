package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/client-go/rest"
	controller "sigs.k8s.io/controller-runtime"
	metricserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/config"
	marketcontract "github.com/veridata-labs/marketplace-broker/internal/contract"
	"github.com/veridata-labs/marketplace-broker/internal/ctrl"
	database "github.com/veridata-labs/marketplace-broker/internal/db"
	"github.com/veridata-labs/marketplace-broker/internal/event"
	"github.com/veridata-labs/marketplace-broker/internal/quality"
	"github.com/veridata-labs/marketplace-broker/internal/storage"
	"github.com/veridata-labs/marketplace-broker/internal/synchronizer"
	"github.com/veridata-labs/marketplace-broker/model"
	"github.com/veridata-labs/marketplace-broker/monitor"
)

func main() {
	conf := config.GetConfig()

	logger, err := log.GetLogger(&conf.Logger)
	if err != nil {
		panic(err)
	}
	logger = logger.WithFields(logrus.Fields{"name": "marketplace-event"})

	if conf.Monitor.Enable {
		monitor.InitPrometheus("marketplace-event")
		go monitor.StartMetricsServer(conf.Monitor.EventAddress)
	}

	db, err := database.NewDB(conf, logger)
	if err != nil {
		logger.Errorf("Failed to initialize database: %v", err)
		panic(err)
	}
	if err := db.Migrate(); err != nil {
		logger.Errorf("Failed to migrate database: %v", err)
		panic(err)
	}

	ledger, err := marketcontract.NewLedgerClient(conf, logger)
	if err != nil {
		logger.Errorf("Failed to initialize ledger client: %v", err)
		panic(err)
	}
	defer ledger.Close()

	cfg := &rest.Config{}
	mgr, err := controller.NewManager(cfg, controller.Options{
		Metrics: metricserver.Options{
			BindAddress: conf.Event.ProviderAddr,
		},
	})
	if err != nil {
		logger.Errorf("Failed to initialize controller manager: %v", err)
		panic(err)
	}

	sync := synchronizer.New(ledger, db, logger)
	ctrlIns := ctrl.New(ledger, ledger.Market(), sync, db, logger, conf.Monitor.Enable)

	cas := storage.NewCAS(conf.Storage.IpfsApiAddr)
	reports := quality.NewCASPublisher(cas, logger)

	objects, err := storage.NewObjectStore(&conf.Storage)
	if err != nil {
		logger.Errorf("Failed to initialize object store: %v", err)
		panic(err)
	}
	fetcher, err := storage.NewDatasetFetcher(conf.Storage.IndexerUrl)
	if err != nil {
		logger.Errorf("Failed to initialize dataset fetcher: %v", err)
		panic(err)
	}
	archiver := storage.NewArchiver(fetcher, objects, logger)

	// Finalized submissions get their datasets copied into the bulk store
	// so buyers can fetch them over presigned URLs.
	archiveHandler := func(ctx context.Context, ev *event.MarketplaceEvent, req *model.Request, sub *model.Submission) {
		if sub == nil || sub.Status != model.SubmissionStatusPaid {
			return
		}
		go func() {
			if _, err := archiver.ArchiveSubmission(context.Background(), sub); err != nil {
				logger.WithFields(logrus.Fields{
					"error":         err,
					"submission_id": sub.SubmissionID,
				}).Error("Failed to archive dataset")
			}
		}()
	}

	ingestor := event.NewIngestor(
		ledger.Client().Client,
		ledger.Market(),
		sync,
		db,
		archiveHandler,
		logger,
		conf.Event.MaxRetries,
		time.Duration(conf.Event.RetryIntervalSecs)*time.Second,
		conf.Monitor.Enable,
	)
	if err := mgr.Add(ingestor); err != nil {
		logger.Errorf("Failed to add event ingestor: %v", err)
		panic(err)
	}

	if ledger.HasSigner() {
		engine := quality.NewEngine(db, reports, logger, ledger.SignerAddress(), conf.Quality.ApprovalThreshold, conf.Monitor.Enable)
		processor := quality.NewProcessor(db, engine, ctrlIns, logger, conf.Quality.WorkerCount, time.Duration(conf.Quality.PollIntervalSecs)*time.Second)
		if err := mgr.Add(processor); err != nil {
			logger.Errorf("Failed to add quality processor: %v", err)
			panic(err)
		}
	} else {
		logger.Warn("No signing key configured, quality processor disabled")
	}

	reconciler := ctrl.NewReconciler(ctrlIns, time.Duration(conf.Interval.ReconcilerSecs)*time.Second)
	if err := mgr.Add(reconciler); err != nil {
		logger.Errorf("Failed to add transaction reconciler: %v", err)
		panic(err)
	}

	ctx := controller.SetupSignalHandler()
	if err := mgr.Start(ctx); err != nil {
		logger.Errorf("Failed to start manager: %v", err)
		panic(err)
	}
}
