package config

// NodeConfig represents the node's HTTP and auth configuration
type NodeConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	JSONRPCAddr string `yaml:"jsonrpc_addr"`
	APIKey      string `yaml:"api_key"`
}

// StoreConfig selects the document store backend and its location
type StoreConfig struct {
	Backend   string `yaml:"backend"`
	Directory string `yaml:"directory"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DSN       string `yaml:"dsn"`
}

// MiningConfig holds block reward settings
type MiningConfig struct {
	Reward uint64 `yaml:"reward"`
}

// GenesisAccount seeds the ledger with a funded account on first boot
type GenesisAccount struct {
	Address string `yaml:"address"`
	Balance uint64 `yaml:"balance"`
}

// LedgerConfig holds the configuration from ledger.yml
type LedgerConfig struct {
	SelfNode NodeConfig       `yaml:"self_node"`
	Store    StoreConfig      `yaml:"store"`
	Mining   MiningConfig     `yaml:"mining"`
	Genesis  []GenesisAccount `yaml:"genesis"`
}

// ConfigFile is the top-level structure for ledger.yml
type ConfigFile struct {
	Config LedgerConfig `yaml:"config"`
}
