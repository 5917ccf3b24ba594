// Package cluster names Solana network endpoint groupings and validates
// persisted cluster identifiers.
package cluster

import (
	"fmt"
	"regexp"

	"github.com/gagliardetto/solana-go/rpc"
)

// Cluster is a named Solana network endpoint grouping.
type Cluster struct {
	// ID is the persisted identifier, always "solana:<network>".
	ID string `json:"id" yaml:"id"`

	// Name is the short network name ("mainnet", "devnet", ...).
	Name string `json:"name" yaml:"name"`

	// Endpoint is the HTTP RPC endpoint.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// WSEndpoint is the websocket RPC endpoint.
	WSEndpoint string `json:"ws_endpoint,omitempty" yaml:"ws_endpoint,omitempty"`
}

var (
	MainnetBeta = Cluster{ID: "solana:mainnet", Name: "mainnet", Endpoint: rpc.MainNetBeta_RPC, WSEndpoint: rpc.MainNetBeta_WS}
	Devnet      = Cluster{ID: "solana:devnet", Name: "devnet", Endpoint: rpc.DevNet_RPC, WSEndpoint: rpc.DevNet_WS}
	Testnet     = Cluster{ID: "solana:testnet", Name: "testnet", Endpoint: rpc.TestNet_RPC, WSEndpoint: rpc.TestNet_WS}
	Localnet    = Cluster{ID: "solana:localnet", Name: "localnet", Endpoint: rpc.LocalNet_RPC, WSEndpoint: rpc.LocalNet_WS}
)

var clusterIDRe = regexp.MustCompile(`^solana:[a-z0-9-]+$`)

// IsClusterID reports whether id matches the "solana:<network>" pattern.
func IsClusterID(id string) bool {
	return clusterIDRe.MatchString(id)
}

// ByID resolves a well-known cluster from its persisted id. Unknown but
// well-formed ids resolve to a cluster with no endpoint, so custom networks
// persist cleanly.
func ByID(id string) (Cluster, error) {
	switch id {
	case MainnetBeta.ID:
		return MainnetBeta, nil
	case Devnet.ID:
		return Devnet, nil
	case Testnet.ID:
		return Testnet, nil
	case Localnet.ID:
		return Localnet, nil
	}
	if !IsClusterID(id) {
		return Cluster{}, fmt.Errorf("invalid cluster id %q", id)
	}
	return Cluster{ID: id, Name: id[len("solana:"):]}, nil
}
