package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/tinycoin/tinycoin/config"
	"github.com/tinycoin/tinycoin/db"
	"github.com/tinycoin/tinycoin/errors"
	"github.com/tinycoin/tinycoin/events"
	"github.com/tinycoin/tinycoin/logx"
	"github.com/tinycoin/tinycoin/store"
	"github.com/tinycoin/tinycoin/types"
	"github.com/tinycoin/tinycoin/utils"
)

// Ledger owns all money movement. Every mutation runs under the
// per-account locks and lands in the stores through a single batch, so
// a half-applied transfer is never observable, not even after a crash.
type Ledger struct {
	accountStore  store.AccountStore
	transferStore store.TransferStore
	blockStore    store.BlockStore
	txManager     *db.DBTxManager
	eventBus      *events.EventBus
	reward        *uint256.Int

	locks *lockManager
	// mineMu serializes height allocation; it is always taken before
	// the miner's account lock
	mineMu sync.Mutex
}

// NewLedger wires the ledger with its stores and the event bus. reward
// is the fixed amount credited per mined block; nil falls back to the
// configured default.
func NewLedger(accountStore store.AccountStore, transferStore store.TransferStore, blockStore store.BlockStore, txManager *db.DBTxManager, eventBus *events.EventBus, reward *uint256.Int) *Ledger {
	if reward == nil {
		reward = uint256.NewInt(config.DefaultMineReward)
	}
	return &Ledger{
		accountStore:  accountStore,
		transferStore: transferStore,
		blockStore:    blockStore,
		txManager:     txManager,
		eventBus:      eventBus,
		reward:        reward.Clone(),
		locks:         newLockManager(),
	}
}

// Reward returns the reward credited per mined block.
func (l *Ledger) Reward() *uint256.Int {
	return l.reward.Clone()
}

// CreateAccount registers a new account with the given starting
// balance. A nil balance counts as zero.
func (l *Ledger) CreateAccount(addr string, initialBalance *uint256.Int) (*types.Account, error) {
	if err := utils.ValidateAddress(addr); err != nil {
		return nil, err
	}

	unlock := l.locks.lockOrdered(addr)
	defer unlock()

	existed, err := l.accountStore.ExistsByAddr(addr)
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not check existence of account: %v", err)
	}
	if existed {
		return nil, errors.ErrAccountExists
	}

	account := types.NewAccount(addr, initialBalance, uint64(time.Now().Unix()))
	if err := l.accountStore.Store(account); err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "failed to store account: %v", err)
	}

	logx.Info("LEDGER", fmt.Sprintf("Created account %s with balance %s", utils.ShortenLog(addr), utils.FormatAmount(account.Balance)))
	l.eventBus.Publish(events.NewAccountCreated(addr, account.Balance))

	return account, nil
}

// CreateAccountsFromGenesis seeds the configured genesis accounts.
// Accounts that already exist are left untouched so reboots stay
// idempotent.
func (l *Ledger) CreateAccountsFromGenesis(accounts []config.GenesisAccount) error {
	for _, genesis := range accounts {
		_, err := l.CreateAccount(genesis.Address, uint256.NewInt(genesis.Balance))
		if err != nil {
			if errors.CodeOf(err) == errors.ErrCodeAccountExists {
				logx.Info("LEDGER", fmt.Sprintf("Genesis account %s already exists, skipping", genesis.Address))
				continue
			}
			return fmt.Errorf("could not create genesis account %s: %w", genesis.Address, err)
		}
	}
	return nil
}

// Transfer moves amount from sender to receiver and appends the
// transfer record. The account updates, the record and both history
// index entries commit in one batch.
func (l *Ledger) Transfer(senderAddr, receiverAddr string, amount *uint256.Int) (*types.TransferRecord, error) {
	if amount == nil || amount.IsZero() {
		return nil, l.rejectTransfer(senderAddr, receiverAddr, errors.ErrInvalidAmount)
	}
	if senderAddr == receiverAddr {
		return nil, l.rejectTransfer(senderAddr, receiverAddr, errors.ErrSelfTransfer)
	}

	unlock := l.locks.lockOrdered(senderAddr, receiverAddr)
	defer unlock()

	accounts, err := l.accountStore.GetBatch([]string{senderAddr, receiverAddr})
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not load transfer parties: %v", err)
	}
	sender := accounts[senderAddr]
	receiver := accounts[receiverAddr]
	if sender == nil {
		return nil, l.rejectTransfer(senderAddr, receiverAddr, errors.NewErrorf(errors.ErrCodeAccountNotFound, "sender account %s does not exist", senderAddr))
	}
	if receiver == nil {
		return nil, l.rejectTransfer(senderAddr, receiverAddr, errors.NewErrorf(errors.ErrCodeAccountNotFound, "receiver account %s does not exist", receiverAddr))
	}

	if err := sender.Debit(amount); err != nil {
		return nil, l.rejectTransfer(senderAddr, receiverAddr, err)
	}
	receiver.Credit(amount)

	record := types.NewTransferRecord(senderAddr, receiverAddr, amount, sender.Nonce, uint64(time.Now().Unix()))
	sender.Nonce++

	senderSeq := sender.HistoryCount
	sender.HistoryCount++
	receiverSeq := receiver.HistoryCount
	receiver.HistoryCount++

	err = l.txManager.WithBatch(func(batch db.DatabaseBatch) error {
		if err := l.accountStore.StoreToBatch(batch, sender); err != nil {
			return err
		}
		if err := l.accountStore.StoreToBatch(batch, receiver); err != nil {
			return err
		}
		return l.transferStore.StoreToBatch(batch, record, senderSeq, receiverSeq)
	})
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "failed to commit transfer: %v", err)
	}

	logx.Info("LEDGER", fmt.Sprintf("Applied transfer %s: %s -> %s amount %s",
		utils.ShortenLog(record.Hash()), utils.ShortenLog(senderAddr), utils.ShortenLog(receiverAddr), utils.FormatAmount(amount)))
	l.eventBus.Publish(events.NewTransferApplied(record.Hash(), senderAddr, receiverAddr, amount))

	return record, nil
}

// rejectTransfer publishes the rejection before handing the error back
func (l *Ledger) rejectTransfer(sender, receiver string, err error) error {
	l.eventBus.Publish(events.NewTransferRejected(sender, receiver, err.Error()))
	logx.Warn("LEDGER", fmt.Sprintf("Rejected transfer %s -> %s: %v", utils.ShortenLog(sender), utils.ShortenLog(receiver), err))
	return err
}

// MineReward credits the fixed reward to the miner and appends the
// next block. Height allocation is serialized, so heights are dense
// and strictly increasing.
func (l *Ledger) MineReward(minerAddr string) (*types.RewardRecord, error) {
	l.mineMu.Lock()
	defer l.mineMu.Unlock()

	unlock := l.locks.lockOrdered(minerAddr)
	defer unlock()

	miner, err := l.accountStore.GetByAddr(minerAddr)
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not load miner account: %v", err)
	}
	if miner == nil {
		return nil, errors.NewErrorf(errors.ErrCodeAccountNotFound, "miner account %s does not exist", minerAddr)
	}

	height, _, err := l.blockStore.LatestHeight()
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not read chain tip: %v", err)
	}

	miner.Credit(l.reward)
	record := types.NewRewardRecord(height+1, minerAddr, l.reward, uint64(time.Now().Unix()))

	err = l.txManager.WithBatch(func(batch db.DatabaseBatch) error {
		if err := l.accountStore.StoreToBatch(batch, miner); err != nil {
			return err
		}
		return l.blockStore.AppendToBatch(batch, record)
	})
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "failed to commit block: %v", err)
	}

	logx.Info("LEDGER", fmt.Sprintf("Mined block %d for %s, reward %s", record.Height, utils.ShortenLog(minerAddr), utils.FormatAmount(l.reward)))
	l.eventBus.Publish(events.NewBlockMined(record.Height, minerAddr, l.reward))

	return record, nil
}

// GetAccount returns the account stored under addr.
func (l *Ledger) GetAccount(addr string) (*types.Account, error) {
	account, err := l.accountStore.GetByAddr(addr)
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not load account: %v", err)
	}
	if account == nil {
		return nil, errors.ErrAccountNotFound
	}
	return account, nil
}

// Balance returns the current balance for addr.
func (l *Ledger) Balance(addr string) (*uint256.Int, error) {
	account, err := l.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Balance, nil
}

// Accounts returns every registered account ordered by address.
func (l *Ledger) Accounts() ([]*types.Account, error) {
	accounts, err := l.accountStore.All()
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not list accounts: %v", err)
	}
	return accounts, nil
}

// History lists the transfers addr took part in, oldest first. An
// address with no transfers (or no account at all) yields an empty
// slice.
func (l *Ledger) History(addr string, filter types.HistoryFilter, limit, offset int) ([]*types.TransferRecord, error) {
	records, err := l.transferStore.GetByParticipant(addr, filter, limit, offset)
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not load history: %v", err)
	}
	return records, nil
}

// GetTransfer returns the transfer record stored under hash.
func (l *Ledger) GetTransfer(hash string) (*types.TransferRecord, error) {
	record, err := l.transferStore.GetByHash(hash)
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not load transfer: %v", err)
	}
	if record == nil {
		return nil, errors.ErrTransferNotFound
	}
	return record, nil
}

// GetBlock returns the block at the given height.
func (l *Ledger) GetBlock(height uint64) (*types.RewardRecord, error) {
	record, err := l.blockStore.GetByHeight(height)
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not load block: %v", err)
	}
	if record == nil {
		return nil, errors.ErrBlockNotFound
	}
	return record, nil
}

// LatestBlock returns the newest block, or ErrBlockNotFound before the
// first mine.
func (l *Ledger) LatestBlock() (*types.RewardRecord, error) {
	record, err := l.blockStore.Latest()
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not load latest block: %v", err)
	}
	if record == nil {
		return nil, errors.ErrBlockNotFound
	}
	return record, nil
}

// BlocksByMiner returns all blocks the address mined, oldest first.
func (l *Ledger) BlocksByMiner(addr string) ([]*types.RewardRecord, error) {
	records, err := l.blockStore.GetByMiner(addr)
	if err != nil {
		return nil, errors.NewErrorf(errors.ErrCodeStorage, "could not load mined blocks: %v", err)
	}
	return records, nil
}
