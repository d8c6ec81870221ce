package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rainlanguage/rain.solver-sub002/internal/config"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

// Dispair is the interpreter/store/deployer address triple a destination
// contract evaluates bounty tasks against.
type Dispair struct {
	Deployer    common.Address
	Interpreter common.Address
	Store       common.Address
}

// TradeAddresses resolves one trade type to its destination arb contract
// and dispair.
type TradeAddresses struct {
	Destination common.Address
	Dispair     Dispair
}

// Contracts resolves destination addresses per trade type from config.
type Contracts struct {
	byType map[models.TradeType]TradeAddresses
}

func NewContracts(cfg map[string]config.TradeContracts) (*Contracts, error) {
	byType := make(map[models.TradeType]TradeAddresses, len(cfg))
	for name, tc := range cfg {
		if !common.IsHexAddress(tc.Destination) {
			return nil, fmt.Errorf("contracts.%s.destination %q is not an address", name, tc.Destination)
		}
		addrs := TradeAddresses{
			Destination: common.HexToAddress(tc.Destination),
			Dispair: Dispair{
				Deployer:    common.HexToAddress(tc.Dispair.Deployer),
				Interpreter: common.HexToAddress(tc.Dispair.Interpreter),
				Store:       common.HexToAddress(tc.Dispair.Store),
			},
		}
		byType[models.TradeType(name)] = addrs
	}
	return &Contracts{byType: byType}, nil
}

// AddressesForTrade returns the addresses the given trade type submits
// through, or nil when the type is unconfigured. Router sub-kinds fall
// back to the generic router entry so refining a route never loses the
// destination resolved before discovery.
func (c *Contracts) AddressesForTrade(order models.Pair, t models.TradeType) *TradeAddresses {
	if c == nil {
		return nil
	}
	if addrs, ok := c.byType[t]; ok {
		return &addrs
	}
	switch t {
	case models.TradeTypeRouteProcessor, models.TradeTypeBalancer, models.TradeTypeStabull:
		if addrs, ok := c.byType[models.TradeTypeRouter]; ok {
			return &addrs
		}
	}
	return nil
}
