// Package ipfs publishes diploma artifacts and metadata documents to content-addressed
// storage and reads them back by locator.
package ipfs

import (
	"context"
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
)

// ErrEmptyContent is returned when asked to publish zero bytes
var ErrEmptyContent = errors.New("ipfs: content is empty")

// ErrInvalidCID is returned when a response or locator does not carry a decodable CID
var ErrInvalidCID = errors.New("ipfs: invalid cid")

// Publisher stores content on a content-addressed network.
//
// Contract:
// - a returned locator always dereferences to the exact bytes submitted;
// - identical bytes may return a previously issued locator;
// - failures never leave a partially published object behind this interface;
// - no retries happen here, callers own the retry policy.
type Publisher interface {
	// Publish stores raw bytes with the given content type
	Publish(ctx context.Context, data []byte, contentType, name string) (string, error)

	// PublishDocument stores a JSON document
	PublishDocument(ctx context.Context, doc interface{}, name string) (string, error)

	// Fetch returns the bytes behind a locator
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// DigestCID returns the CIDv1 (raw codec, sha2-256) of data. It identifies the artifact
// bytes independently of how the pinning service chunks them.
func DigestCID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

func publishError(cause error, message string) error {
	return apperrors.Wrap(apperrors.ErrPublishFailed, cause, message)
}
