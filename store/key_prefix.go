package store

// Declare database key prefix for objects
const (
	PrefixAccount = "account:"

	PrefixTransfer = "transfer:"
	PrefixHistory  = "history:"

	PrefixBlock              = "block:"
	PrefixBlockMeta          = "block_meta:"
	PrefixBlockMiner         = "block_miner:"
	BlockMetaKeyLatestHeight = "latest_height"
)

// keySep separates an address from the binary sequence suffix inside
// index keys. Addresses are printable strings, so NUL never collides.
const keySep = byte(0)
