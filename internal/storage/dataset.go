package storage

import (
	"context"
	"os"
	"path/filepath"

	zgcommon "github.com/0glabs/0g-storage-client/common"
	"github.com/0glabs/0g-storage-client/indexer"
	"github.com/sirupsen/logrus"

	"github.com/veridata-labs/marketplace-broker/common/errors"
)

// DatasetFetcher pulls dataset payloads from the decentralized storage
// network the sellers publish to. Dataset references on the ledger are the
// network's root hashes.
type DatasetFetcher struct {
	indexerClient *indexer.Client
}

func NewDatasetFetcher(indexerURL string) (*DatasetFetcher, error) {
	client, err := indexer.NewClient(indexerURL, indexer.IndexerClientOption{
		LogOption: zgcommon.LogOption{Logger: logrus.StandardLogger()},
	})
	if err != nil {
		return nil, errors.Wrap(err, "create indexer client")
	}
	return &DatasetFetcher{indexerClient: client}, nil
}

// Download fetches the dataset behind rootHash into destPath, verifying the
// merkle proof on the way down.
func (f *DatasetFetcher) Download(ctx context.Context, rootHash, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errors.Wrap(err, "prepare download directory")
	}
	if err := f.indexerClient.Download(ctx, rootHash, destPath, true); err != nil {
		return errors.Wrapf(err, "download dataset %s", rootHash)
	}
	return nil
}
