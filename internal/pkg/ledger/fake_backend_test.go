package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type chainStudent struct {
	id       *big.Int
	name     string
	course   string
	birth    string
	grade    *big.Int
	enrolled bool
	wallet   common.Address
	token    *big.Int
}

// fakeChain is an in-memory StudentRegistry behind the bind backend interfaces
type fakeChain struct {
	mu  sync.Mutex
	abi abi.ABI

	students  map[string]*chainStudent
	ids       []*big.Int
	tokenURIs map[string]string
	nextToken int64

	nonce       uint64
	nonceCalls  int
	sent        []*types.Transaction
	receipts    map[common.Hash]*types.Receipt
	sendErr     error
	estimateErr error
	revert      bool
	callErr     error

	// students() reads that still see the pre-mint token id
	settleLag int
	pending   []func()
}

func newFakeChain() *fakeChain {
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		panic(err)
	}
	return &fakeChain{
		abi:       parsed,
		students:  make(map[string]*chainStudent),
		tokenURIs: make(map[string]string),
		receipts:  make(map[common.Hash]*types.Receipt),
	}
}

func (f *fakeChain) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.callErr != nil {
		return nil, f.callErr
	}
	method, err := f.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case methodStudents:
		if len(f.pending) > 0 {
			if f.settleLag <= 0 {
				for _, apply := range f.pending {
					apply()
				}
				f.pending = nil
			} else {
				f.settleLag--
			}
		}
		st, ok := f.students[args[0].(*big.Int).String()]
		if !ok {
			return method.Outputs.Pack(big.NewInt(0), "", "", "", big.NewInt(0), false, common.Address{}, big.NewInt(0))
		}
		return method.Outputs.Pack(st.id, st.name, st.course, st.birth, st.grade, st.enrolled, st.wallet, st.token)
	case methodStudentIDs:
		idx := args[0].(*big.Int)
		if !idx.IsInt64() || idx.Int64() >= int64(len(f.ids)) {
			return nil, errors.New("execution reverted: index out of bounds")
		}
		return method.Outputs.Pack(f.ids[idx.Int64()])
	case methodTotalStudents:
		return method.Outputs.Pack(big.NewInt(int64(len(f.ids))))
	case methodTokenURI:
		uri, ok := f.tokenURIs[args[0].(*big.Int).String()]
		if !ok {
			return nil, errors.New("execution reverted: ERC721: invalid token ID")
		}
		return method.Outputs.Pack(uri)
	}
	return nil, errors.New("unsupported call " + method.Name)
}

func (f *fakeChain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1), BaseFee: big.NewInt(1)}, nil
}

func (f *fakeChain) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (f *fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceCalls++
	return f.nonce, nil
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeChain) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeChain) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 200000, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		err := f.sendErr
		f.sendErr = nil
		return err
	}

	f.sent = append(f.sent, tx)
	f.nonce = tx.Nonce() + 1

	status := types.ReceiptStatusSuccessful
	if f.revert {
		status = types.ReceiptStatusFailed
	} else if err := f.apply(tx.Data()); err != nil {
		status = types.ReceiptStatusFailed
	}
	f.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(int64(len(f.sent))),
		GasUsed:     21000,
	}
	return nil
}

func (f *fakeChain) apply(data []byte) error {
	method, err := f.abi.MethodById(data[:4])
	if err != nil {
		return err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return err
	}

	switch method.Name {
	case methodAddStudent:
		id := args[0].(*big.Int)
		if st, ok := f.students[id.String()]; ok && st.enrolled {
			return errors.New("already enrolled")
		}
		f.students[id.String()] = &chainStudent{
			id: id, name: args[1].(string), course: args[2].(string), birth: args[3].(string),
			grade: args[4].(*big.Int), enrolled: true, wallet: args[5].(common.Address), token: big.NewInt(0),
		}
		f.ids = append(f.ids, id)
	case methodIssueDiploma:
		st, ok := f.students[args[0].(*big.Int).String()]
		if !ok || !st.enrolled {
			return errors.New("not enrolled")
		}
		f.nextToken++
		token := big.NewInt(f.nextToken)
		f.tokenURIs[token.String()] = args[2].(string)
		f.pending = append(f.pending, func() { st.token = token })
	case methodRemoveStudent:
		id := args[0].(*big.Int)
		st, ok := f.students[id.String()]
		if !ok || !st.enrolled {
			return errors.New("not enrolled")
		}
		st.enrolled = false
		for i, existing := range f.ids {
			if existing.Cmp(id) == 0 {
				f.ids = append(f.ids[:i], f.ids[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.receipts[txHash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (f *fakeChain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

func (f *fakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1337), nil
}

func (f *fakeChain) sentNonces() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	nonces := make([]uint64, 0, len(f.sent))
	for _, tx := range f.sent {
		nonces = append(nonces, tx.Nonce())
	}
	return nonces
}
