package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
	"github.com/veridata-labs/marketplace-broker/common/log"
	"github.com/veridata-labs/marketplace-broker/model"
)

// Archiver copies approved datasets out of the decentralized network into
// the bulk store, where buyers fetch them over presigned URLs. Archival is
// best effort; the canonical dataset stays reachable by root hash either way.
type Archiver struct {
	fetcher *DatasetFetcher
	objects *ObjectStore
	logger  log.Logger
}

func NewArchiver(fetcher *DatasetFetcher, objects *ObjectStore, logger log.Logger) *Archiver {
	return &Archiver{fetcher: fetcher, objects: objects, logger: logger}
}

// ArchiveSubmission pulls the submission's dataset and stores it under a
// deterministic key. Returns the bulk-store locator.
func (a *Archiver) ArchiveSubmission(ctx context.Context, sub *model.Submission) (string, error) {
	if sub.DatasetRef == "" {
		return "", errors.New("submission has no dataset reference")
	}

	tmpDir, err := os.MkdirTemp("", "dataset-archive-")
	if err != nil {
		return "", errors.Wrap(err, "create archive workspace")
	}
	defer os.RemoveAll(tmpDir)

	localPath := filepath.Join(tmpDir, "dataset")
	if err := a.fetcher.Download(ctx, sub.DatasetRef, localPath); err != nil {
		return "", err
	}

	key := fmt.Sprintf("datasets/%d/%s", sub.SubmissionID, sub.DatasetRef)
	info, err := a.objects.PutFile(ctx, key, localPath, "application/octet-stream")
	if err != nil {
		return "", err
	}

	a.logger.WithFields(logrus.Fields{
		"submission_id": sub.SubmissionID,
		"locator":       info.Locator,
		"size":          info.Size,
	}).Info("Dataset archived")
	return info.Locator, nil
}
