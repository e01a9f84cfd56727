package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
)

// GovAppConfig holds the app-side settings that live outside the CometBFT
// config proper.
type GovAppConfig struct {
	Home          string `mapstructure:"-"`
	TimeoutCommit uint64 `mapstructure:"-"`

	// IndexerListenAddr is where the audit-event REST API serves, empty
	// disables it.
	IndexerListenAddr string `mapstructure:"indexer_listen_addr"`
}

func DefaultGovAppConfig(home string) *GovAppConfig {
	return &GovAppConfig{
		Home: home,
	}
}

func NewGovAppConfig(home string) *GovAppConfig {
	return &GovAppConfig{
		Home: home,
	}
}

// GWeiPerPower converts between bond units and consensus voting power.
func GWeiPerPower(height uint64) uint64 {
	return 1000000000
}

func PowerPerStake(stake uint64, height uint64) int64 {
	return int64(stake / GWeiPerPower(height))
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *GovAppConfig `mapstructure:"app"`
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.tgov")
	}
	config := &Config{
		DefaultGovCometConfig(),
		NewGovAppConfig(home),
	}
	config.RootDir = home
	_ = os.MkdirAll(home+"/config", 0755)
	return config
}

func NewGovConfig(home string) *Config {
	if len(home) == 0 {
		home = os.ExpandEnv("$HOME/.tgov")
	}
	_ = os.MkdirAll(home+"/config", 0755)
	config := &Config{
		DefaultGovCometConfig(),
		NewGovAppConfig(home),
	}
	config.RootDir = home
	return config
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultGovCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 10
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
