package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

type txFunc func(opts *bind.TransactOpts) (*types.Transaction, error)

type submission struct {
	ctx    context.Context
	fn     txFunc
	result chan submitResult
}

type submitResult struct {
	tx  *types.Transaction
	err error
}

// submitter owns the signing key and its nonce. All writes go through a single goroutine
// so concurrent requests never reuse a nonce.
type submitter struct {
	backend bind.ContractTransactor
	signer  *bind.TransactOpts
	queue   chan submission
	quit    chan struct{}
	done    chan struct{}
	logger  zerolog.Logger

	// owned by run
	nonce  uint64
	synced bool
}

func newSubmitter(backend bind.ContractTransactor, signer *bind.TransactOpts, queueSize int, logger zerolog.Logger) *submitter {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &submitter{
		backend: backend,
		signer:  signer,
		queue:   make(chan submission, queueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger,
	}
}

func (s *submitter) run() {
	defer close(s.done)
	for {
		select {
		case sub := <-s.queue:
			sub.result <- s.send(sub)
		case <-s.quit:
			return
		}
	}
}

func (s *submitter) send(sub submission) submitResult {
	if err := sub.ctx.Err(); err != nil {
		return submitResult{err: err}
	}

	if !s.synced {
		nonce, err := s.backend.PendingNonceAt(sub.ctx, s.signer.From)
		if err != nil {
			return submitResult{err: err}
		}
		s.nonce = nonce
		s.synced = true
		s.logger.Debug().Uint64("nonce", nonce).Msg("Nonce synchronised from node")
	}

	opts := *s.signer
	opts.Context = sub.ctx
	opts.Nonce = new(big.Int).SetUint64(s.nonce)

	tx, err := sub.fn(&opts)
	if err != nil {
		// The node may or may not have seen the nonce; ask again on the next write
		s.synced = false
		return submitResult{err: err}
	}

	s.nonce++
	return submitResult{tx: tx}
}

// submit queues fn and waits for the signed transaction to be sent
func (s *submitter) submit(ctx context.Context, fn txFunc) (*types.Transaction, error) {
	sub := submission{ctx: ctx, fn: fn, result: make(chan submitResult, 1)}

	select {
	case s.queue <- sub:
	case <-s.quit:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-sub.result:
		return res.tx, res.err
	case <-s.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *submitter) stop() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	<-s.done
}
