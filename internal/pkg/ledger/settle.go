package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var errUnchanged = errors.New("value unchanged")

// awaitChange polls read until it returns something other than prior. Read errors are
// retried like an unchanged value; the poll gives up after timeout.
func awaitChange(ctx context.Context, read func(context.Context) (string, error), prior string, interval, timeout time.Duration) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = 8 * interval
	b.RandomizationFactor = 0.2

	value, err := backoff.Retry(ctx, func() (string, error) {
		v, err := read(ctx)
		if err != nil {
			return "", err
		}
		if v == prior {
			return "", errUnchanged
		}
		return v, nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(timeout))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", errors.Join(ErrNotSettled, err)
	}
	return value, nil
}
