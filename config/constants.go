package config

const (
	DefaultListenAddr  = ":8080"
	DefaultJSONRPCAddr = ":8081"

	DefaultStoreBackend   = "leveldb"
	DefaultStoreDirectory = "./data"

	DefaultMineReward = 10

	// EnvAPIKey overrides self_node.api_key when set, so the key can stay
	// out of config files checked into source control.
	EnvAPIKey = "TINYCOIN_API_KEY"
)
