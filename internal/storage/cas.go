// Package storage collects the broker's three storage surfaces: a
// content-addressed store for quality reports, a bulk object store for
// dataset archives, and the decentralized storage network datasets are
// referenced on.
package storage

import (
	"bytes"
	"context"
	"io"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/veridata-labs/marketplace-broker/common/errors"
)

// CAS is a content-addressed store backed by an IPFS API node. References
// are CIDs; identical content always yields the same reference.
type CAS struct {
	sh *shell.Shell
}

func NewCAS(apiAddr string) *CAS {
	return &CAS{sh: shell.NewShell(apiAddr)}
}

// Put stores the content and returns its CID. The underlying API client has
// no context plumbing; the ctx parameter keeps the interface uniform with
// the other stores.
func (c *CAS) Put(_ context.Context, data []byte) (string, error) {
	cid, err := c.sh.Add(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "add content to ipfs")
	}
	return cid, nil
}

func (c *CAS) Get(_ context.Context, ref string) ([]byte, error) {
	rc, err := c.sh.Cat(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "cat %s from ipfs", ref)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s from ipfs", ref)
	}
	return data, nil
}

// Pin protects a reference from garbage collection.
func (c *CAS) Pin(_ context.Context, ref string) error {
	if err := c.sh.Pin(ref); err != nil {
		return errors.Wrapf(err, "pin %s", ref)
	}
	return nil
}
