package params

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/smolpuddle/puddle/pkg/chain"
)

type Chain struct {
	ID       int64
	RPCURL   string // empty disables on-chain status refresh
	Contract common.Address
}

type Node struct {
	APIAddr     string
	DataDir     string
	LogFile     string
	LogLevel    string
	CORSOrigins []string
	// PruneInterval is how often expired orders are dropped and, with an
	// RPC endpoint, settled orders swept.
	PruneInterval time.Duration
}

type P2P struct {
	Listen    string // empty disables gossip
	Bootstrap []string
}

type Config struct {
	Chain Chain
	Node  Node
	P2P   P2P
}

func Default() Config {
	return Config{
		Chain: Chain{
			ID:       chain.DefaultChainID,
			RPCURL:   chain.DefaultRPC,
			Contract: chain.SmolPuddleContract,
		},
		Node: Node{
			APIAddr:       ":8080",
			DataDir:       "data",
			LogFile:       "data/puddled.log",
			LogLevel:      "info",
			CORSOrigins:   []string{"http://localhost:3000"},
			PruneInterval: 60 * time.Second,
		},
	}
}

// JournalPath is where accepted and removed order hashes are appended.
func (c Config) JournalPath() string { return filepath.Join(c.Node.DataDir, "journal.log") }

// StorePath is the pebble directory.
func (c Config) StorePath() string { return filepath.Join(c.Node.DataDir, "orders") }

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if id := os.Getenv("CHAIN_ID"); id != "" {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			cfg.Chain.ID = n
		}
	}
	if rpc, ok := os.LookupEnv("RPC_URL"); ok {
		cfg.Chain.RPCURL = rpc
	}
	if addr := os.Getenv("SMOLPUDDLE_CONTRACT"); common.IsHexAddress(addr) {
		cfg.Chain.Contract = common.HexToAddress(addr)
	}

	cfg.Node.APIAddr = getEnv("API_ADDR", cfg.Node.APIAddr)
	cfg.Node.DataDir = getEnv("DATA_DIR", cfg.Node.DataDir)
	cfg.Node.LogFile = filepath.Join(cfg.Node.DataDir, "puddled.log")
	if logFile, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.Node.LogFile = logFile // empty logs to the console only
	}
	cfg.Node.LogLevel = getEnv("LOG_LEVEL", cfg.Node.LogLevel)
	if origins := splitList(os.Getenv("CORS_ORIGINS")); len(origins) > 0 {
		cfg.Node.CORSOrigins = origins
	}
	if s := os.Getenv("PRUNE_INTERVAL_S"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.Node.PruneInterval = time.Duration(n) * time.Second
		}
	}

	cfg.P2P.Listen = os.Getenv("P2P_LISTEN")
	cfg.P2P.Bootstrap = splitList(os.Getenv("P2P_BOOTSTRAP"))

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
