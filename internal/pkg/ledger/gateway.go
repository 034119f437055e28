package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

// Backend is the node connection used by the gateway. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Config holds connection and timing settings
type Config struct {
	RPCURL          string
	PrivateKey      string
	ContractAddress string
	ChainID         int64
	CallTimeout     time.Duration
	ConfirmTimeout  time.Duration
	SettleInterval  time.Duration
	SettleTimeout   time.Duration
	QueueSize       int
}

func (c *Config) applyDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 3 * time.Minute
	}
	if c.SettleInterval <= 0 {
		c.SettleInterval = 500 * time.Millisecond
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 30 * time.Second
	}
}

// Gateway reads and writes the StudentRegistry contract
type Gateway struct {
	backend  Backend
	contract *bind.BoundContract
	address  common.Address
	writer   *submitter
	mints    *keyedLock
	from     common.Address
	cfg      Config
	logger   zerolog.Logger
}

// Dial connects to cfg.RPCURL and returns a ready gateway
func Dial(ctx context.Context, cfg Config, logger zerolog.Logger) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial %s: %w", cfg.RPCURL, err)
	}
	gw, err := New(ctx, client, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return gw, nil
}

// New builds a gateway over an existing backend and starts its write queue
func New(ctx context.Context, backend Backend, cfg Config, logger zerolog.Logger) (*Gateway, error) {
	cfg.applyDefaults()

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("ledger: parse contract ABI: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("ledger: invalid signing key: %w", err)
	}

	chainID, err := resolveChainID(ctx, backend, cfg.ChainID)
	if err != nil {
		return nil, err
	}

	signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("ledger: build transactor: %w", err)
	}

	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("ledger: invalid contract address %q", cfg.ContractAddress)
	}
	address := common.HexToAddress(cfg.ContractAddress)

	gw := &Gateway{
		backend:  backend,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		address:  address,
		mints:    newKeyedLock(),
		from:     signerAddress(key),
		cfg:      cfg,
		logger:   logger,
	}
	gw.writer = newSubmitter(backend, signer, cfg.QueueSize, logger)
	go gw.writer.run()

	logger.Info().
		Str("contract", address.Hex()).
		Str("signer", gw.from.Hex()).
		Str("chain_id", chainID.String()).
		Msg("Ledger gateway ready")
	return gw, nil
}

func resolveChainID(ctx context.Context, backend Backend, configured int64) (*big.Int, error) {
	if configured > 0 {
		return big.NewInt(configured), nil
	}
	id, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: query chain id: %w", err)
	}
	return id, nil
}

func signerAddress(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// Signer returns the address that pays for and signs writes
func (g *Gateway) Signer() string {
	return g.from.Hex()
}

// Close stops the write queue and releases the RPC connection. Pending submissions fail
// with ErrClosed.
func (g *Gateway) Close() {
	g.writer.stop()
	if c, ok := g.backend.(interface{ Close() }); ok {
		c.Close()
	}
}

// Enroll records a student on the ledger
func (g *Gateway) Enroll(ctx context.Context, e Enrollment) (*Receipt, error) {
	id, err := parseUint("id", e.ID)
	if err != nil {
		return nil, err
	}
	grade, err := parseUint("grade", e.Grade)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(e.Wallet) {
		return nil, fmt.Errorf("ledger: invalid wallet %q", e.Wallet)
	}

	return g.transact(ctx, methodAddStudent, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return g.contract.Transact(opts, methodAddStudent, id, e.Name, e.Course, e.BirthDate, grade, common.HexToAddress(e.Wallet))
	})
}

// IssueToken mints a diploma token for studentID to recipient. The token id is read back
// from the student record once the mint becomes visible. Mints for the same student are
// serialized from the pre-mint read until their token id is observed.
func (g *Gateway) IssueToken(ctx context.Context, studentID, recipient, metadataURI string) (*MintReceipt, error) {
	id, err := parseUint("id", studentID)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(recipient) {
		return nil, fmt.Errorf("ledger: invalid recipient %q", recipient)
	}

	unlock, err := g.mints.lock(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("ledger: %s: %w", methodIssueDiploma, err)
	}
	defer unlock()

	var prior string
	receipt, err := g.transact(ctx, methodIssueDiploma, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		st, err := g.readStudent(opts.Context, id)
		if err != nil {
			return nil, err
		}
		prior = st.TokenID
		return g.contract.Transact(opts, methodIssueDiploma, id, common.HexToAddress(recipient), metadataURI)
	})
	if err != nil {
		if receipt != nil {
			return &MintReceipt{Receipt: *receipt}, err
		}
		return nil, err
	}

	tokenID, err := awaitChange(ctx, func(ctx context.Context) (string, error) {
		st, err := g.readStudent(ctx, id)
		if err != nil {
			return "", err
		}
		return st.TokenID, nil
	}, prior, g.cfg.SettleInterval, g.cfg.SettleTimeout)
	if err != nil {
		g.logger.Warn().Err(err).Str("tx", receipt.TxHash).Str("student_id", studentID).Msg("Minted token id not visible")
		return &MintReceipt{Receipt: *receipt}, fmt.Errorf("ledger: %s: %w", methodIssueDiploma, err)
	}

	return &MintReceipt{Receipt: *receipt, TokenID: tokenID}, nil
}

// Remove deletes a student from the registry
func (g *Gateway) Remove(ctx context.Context, studentID string) (*Receipt, error) {
	id, err := parseUint("id", studentID)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, methodRemoveStudent, func(opts *bind.TransactOpts) (*types.Transaction, error) {
		return g.contract.Transact(opts, methodRemoveStudent, id)
	})
}

// transact sends through the single writer and waits for the receipt. A receipt is
// returned alongside the error when the transaction was mined but failed.
func (g *Gateway) transact(ctx context.Context, method string, fn txFunc) (*Receipt, error) {
	tx, err := g.writer.submit(ctx, fn)
	if err != nil {
		return nil, classify(method, err)
	}
	hash := tx.Hash().Hex()
	g.logger.Debug().Str("method", method).Str("tx", hash).Uint64("nonce", tx.Nonce()).Msg("Transaction sent")

	waitCtx, cancel := context.WithTimeout(ctx, g.cfg.ConfirmTimeout)
	defer cancel()

	mined, err := bind.WaitMined(waitCtx, g.backend, tx)
	if err != nil {
		return &Receipt{TxHash: hash}, fmt.Errorf("ledger: %s: waiting for %s: %w", method, hash, err)
	}

	receipt := &Receipt{TxHash: hash, GasUsed: mined.GasUsed}
	if mined.BlockNumber != nil {
		receipt.BlockNumber = mined.BlockNumber.Uint64()
	}
	if mined.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("ledger: %s: %w: transaction %s failed", method, ErrRejected, hash)
	}

	g.logger.Info().Str("method", method).Str("tx", hash).Uint64("block", receipt.BlockNumber).Msg("Transaction confirmed")
	return receipt, nil
}

func (g *Gateway) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	var out []interface{}
	if err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, classify(method, err)
	}
	return out, nil
}

// GetStudent reads a student record. Unknown ids come back zeroed with IsEnrolled false.
func (g *Gateway) GetStudent(ctx context.Context, studentID string) (*Student, error) {
	id, err := parseUint("id", studentID)
	if err != nil {
		return nil, err
	}
	return g.readStudent(ctx, id)
}

func (g *Gateway) readStudent(ctx context.Context, id *big.Int) (*Student, error) {
	out, err := g.call(ctx, methodStudents, id)
	if err != nil {
		return nil, err
	}
	if len(out) != 8 {
		return nil, fmt.Errorf("ledger: %s: unexpected %d outputs", methodStudents, len(out))
	}

	return &Student{
		ID:         (*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)).String(),
		Name:       *abi.ConvertType(out[1], new(string)).(*string),
		Course:     *abi.ConvertType(out[2], new(string)).(*string),
		BirthDate:  *abi.ConvertType(out[3], new(string)).(*string),
		Grade:      (*abi.ConvertType(out[4], new(*big.Int)).(**big.Int)).String(),
		IsEnrolled: *abi.ConvertType(out[5], new(bool)).(*bool),
		Wallet:     (*abi.ConvertType(out[6], new(common.Address)).(*common.Address)).Hex(),
		TokenID:    (*abi.ConvertType(out[7], new(*big.Int)).(**big.Int)).String(),
	}, nil
}

// GetTotalEnrolled returns the length of the enrolled id list
func (g *Gateway) GetTotalEnrolled(ctx context.Context) (uint64, error) {
	out, err := g.call(ctx, methodTotalStudents)
	if err != nil {
		return 0, err
	}
	total := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !total.IsUint64() {
		return 0, fmt.Errorf("ledger: %s: total %s out of range", methodTotalStudents, total)
	}
	return total.Uint64(), nil
}

// GetStudentIDAt returns the id stored at index of the enrolled id list
func (g *Gateway) GetStudentIDAt(ctx context.Context, index uint64) (string, error) {
	out, err := g.call(ctx, methodStudentIDs, new(big.Int).SetUint64(index))
	if err != nil {
		return "", err
	}
	return (*abi.ConvertType(out[0], new(*big.Int)).(**big.Int)).String(), nil
}

// GetTokenMetadataLocator returns the metadata URI attached to a token
func (g *Gateway) GetTokenMetadataLocator(ctx context.Context, tokenID string) (string, error) {
	id, err := parseUint("tokenId", tokenID)
	if err != nil {
		return "", err
	}
	out, err := g.call(ctx, methodTokenURI, id)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}
