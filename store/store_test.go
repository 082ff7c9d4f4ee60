package store

import (
	"fmt"
	"testing"

	"github.com/holiman/uint256"

	"github.com/tinycoin/tinycoin/db"
	"github.com/tinycoin/tinycoin/types"
)

func newTestStores(t *testing.T) (AccountStore, TransferStore, BlockStore, db.DatabaseProvider) {
	t.Helper()
	cfg := &StoreConfig{Type: LevelDBStoreType, Directory: t.TempDir()}
	accStore, transferStore, blockStore, provider, err := CreateStore(cfg)
	if err != nil {
		t.Fatalf("CreateStore: %v", err)
	}
	t.Cleanup(func() { provider.Close() })
	return accStore, transferStore, blockStore, provider
}

func TestAccountStoreRoundTrip(t *testing.T) {
	accStore, _, _, _ := newTestStores(t)

	missing, err := accStore.GetByAddr("nobody")
	if err != nil {
		t.Fatalf("GetByAddr: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing account, got %+v", missing)
	}

	acc := types.NewAccount("alice", uint256.NewInt(1000), 1700000000)
	acc.Nonce = 3
	acc.HistoryCount = 5
	if err := accStore.Store(acc); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := accStore.GetByAddr("alice")
	if err != nil {
		t.Fatalf("GetByAddr: %v", err)
	}
	if got == nil {
		t.Fatal("account not found after store")
	}
	if got.Address != "alice" || got.Balance.Uint64() != 1000 || got.Nonce != 3 ||
		got.CreatedAt != 1700000000 || got.HistoryCount != 5 {
		t.Errorf("round trip mismatch: %+v", got)
	}

	exists, err := accStore.ExistsByAddr("alice")
	if err != nil || !exists {
		t.Errorf("ExistsByAddr = %v, %v; want true, nil", exists, err)
	}
}

func TestAccountStoreAllSorted(t *testing.T) {
	accStore, _, _, _ := newTestStores(t)

	seed := []*types.Account{
		types.NewAccount("carol", uint256.NewInt(1), 0),
		types.NewAccount("alice", uint256.NewInt(1), 0),
		types.NewAccount("bob", uint256.NewInt(1), 0),
	}
	if err := accStore.StoreBatch(seed); err != nil {
		t.Fatalf("StoreBatch: %v", err)
	}

	accounts, err := accStore.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(accounts) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(accounts))
	}
	want := []string{"alice", "bob", "carol"}
	for i, acc := range accounts {
		if acc.Address != want[i] {
			t.Errorf("accounts[%d] = %s, want %s", i, acc.Address, want[i])
		}
	}
}

func stageTransfer(t *testing.T, ts TransferStore, provider db.DatabaseProvider, record *types.TransferRecord, senderSeq, receiverSeq uint64) {
	t.Helper()
	batch := provider.Batch()
	defer batch.Close()
	if err := ts.StoreToBatch(batch, record, senderSeq, receiverSeq); err != nil {
		t.Fatalf("StoreToBatch: %v", err)
	}
	if err := batch.Write(); err != nil {
		t.Fatalf("batch write: %v", err)
	}
}

func TestTransferStoreHistory(t *testing.T) {
	_, transferStore, _, provider := newTestStores(t)

	r1 := types.NewTransferRecord("alice", "bob", uint256.NewInt(40), 0, 100)
	r2 := types.NewTransferRecord("bob", "alice", uint256.NewInt(15), 0, 101)
	r3 := types.NewTransferRecord("alice", "carol", uint256.NewInt(5), 1, 102)

	stageTransfer(t, transferStore, provider, r1, 0, 0) // alice out #0, bob in #0
	stageTransfer(t, transferStore, provider, r2, 1, 1) // bob out #1, alice in #1
	stageTransfer(t, transferStore, provider, r3, 2, 0) // alice out #2, carol in #0

	got, err := transferStore.GetByHash(r1.Hash())
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if got == nil || got.Sender != "alice" || got.Receiver != "bob" || got.Amount.Uint64() != 40 {
		t.Errorf("GetByHash mismatch: %+v", got)
	}

	none, err := transferStore.GetByHash("deadbeef")
	if err != nil || none != nil {
		t.Errorf("missing hash should yield nil, nil; got %+v, %v", none, err)
	}

	all, err := transferStore.GetByParticipant("alice", types.HistoryAll, 0, 0)
	if err != nil {
		t.Fatalf("GetByParticipant: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("alice history length = %d, want 3", len(all))
	}
	// insertion order preserved
	if all[0].Hash() != r1.Hash() || all[1].Hash() != r2.Hash() || all[2].Hash() != r3.Hash() {
		t.Errorf("history out of order: %v", all)
	}

	sent, err := transferStore.GetByParticipant("alice", types.HistorySender, 0, 0)
	if err != nil {
		t.Fatalf("GetByParticipant sender: %v", err)
	}
	if len(sent) != 2 || sent[0].Hash() != r1.Hash() || sent[1].Hash() != r3.Hash() {
		t.Errorf("sender filter mismatch: %v", sent)
	}

	received, err := transferStore.GetByParticipant("alice", types.HistoryReceiver, 0, 0)
	if err != nil {
		t.Fatalf("GetByParticipant receiver: %v", err)
	}
	if len(received) != 1 || received[0].Hash() != r2.Hash() {
		t.Errorf("receiver filter mismatch: %v", received)
	}

	empty, err := transferStore.GetByParticipant("nobody", types.HistoryAll, 0, 0)
	if err != nil {
		t.Fatalf("GetByParticipant empty: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty history, got %v", empty)
	}
}

func TestTransferStoreHistoryPagination(t *testing.T) {
	_, transferStore, _, provider := newTestStores(t)

	hashes := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		r := types.NewTransferRecord("alice", fmt.Sprintf("peer%d", i), uint256.NewInt(1), uint64(i), uint64(100+i))
		stageTransfer(t, transferStore, provider, r, uint64(i), 0)
		hashes = append(hashes, r.Hash())
	}

	page, err := transferStore.GetByParticipant("alice", types.HistoryAll, 2, 1)
	if err != nil {
		t.Fatalf("GetByParticipant: %v", err)
	}
	if len(page) != 2 || page[0].Hash() != hashes[1] || page[1].Hash() != hashes[2] {
		t.Errorf("pagination mismatch: %v", page)
	}

	past, err := transferStore.GetByParticipant("alice", types.HistoryAll, 10, 99)
	if err != nil {
		t.Fatalf("GetByParticipant: %v", err)
	}
	if len(past) != 0 {
		t.Errorf("offset past end should be empty, got %v", past)
	}
}

func TestBlockStoreAppendAndLookup(t *testing.T) {
	_, _, blockStore, provider := newTestStores(t)

	_, ok, err := blockStore.LatestHeight()
	if err != nil {
		t.Fatalf("LatestHeight: %v", err)
	}
	if ok {
		t.Fatal("fresh store should have no latest height")
	}

	for height := uint64(1); height <= 3; height++ {
		miner := "miner-a"
		if height == 2 {
			miner = "miner-b"
		}
		record := types.NewRewardRecord(height, miner, uint256.NewInt(10), 200+height)
		batch := provider.Batch()
		if err := blockStore.AppendToBatch(batch, record); err != nil {
			t.Fatalf("AppendToBatch: %v", err)
		}
		if err := batch.Write(); err != nil {
			t.Fatalf("batch write: %v", err)
		}
		batch.Close()
	}

	height, ok, err := blockStore.LatestHeight()
	if err != nil || !ok || height != 3 {
		t.Fatalf("LatestHeight = %d, %v, %v; want 3, true, nil", height, ok, err)
	}

	latest, err := blockStore.Latest()
	if err != nil || latest == nil || latest.Height != 3 {
		t.Fatalf("Latest = %+v, %v", latest, err)
	}

	blk, err := blockStore.GetByHeight(2)
	if err != nil {
		t.Fatalf("GetByHeight: %v", err)
	}
	if blk == nil || blk.Miner != "miner-b" || blk.Reward.Uint64() != 10 {
		t.Errorf("block 2 mismatch: %+v", blk)
	}

	missing, err := blockStore.GetByHeight(99)
	if err != nil || missing != nil {
		t.Errorf("missing block should yield nil, nil; got %+v, %v", missing, err)
	}

	mined, err := blockStore.GetByMiner("miner-a")
	if err != nil {
		t.Fatalf("GetByMiner: %v", err)
	}
	if len(mined) != 2 || mined[0].Height != 1 || mined[1].Height != 3 {
		t.Errorf("miner-a blocks mismatch: %v", mined)
	}
}

func TestStoreConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr bool
	}{
		{"empty type", StoreConfig{}, true},
		{"leveldb ok", StoreConfig{Type: LevelDBStoreType, Directory: "./d"}, false},
		{"leveldb no dir", StoreConfig{Type: LevelDBStoreType}, true},
		{"bolt ok", StoreConfig{Type: BoltStoreType, Directory: "./d"}, false},
		{"redis ok", StoreConfig{Type: RedisStoreType, Addr: "localhost:6379"}, false},
		{"redis no addr", StoreConfig{Type: RedisStoreType}, true},
		{"postgres ok", StoreConfig{Type: PostgresStoreType, DSN: "postgres://"}, false},
		{"postgres no dsn", StoreConfig{Type: PostgresStoreType}, true},
		{"unknown", StoreConfig{Type: "mongo", Directory: "./d"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
