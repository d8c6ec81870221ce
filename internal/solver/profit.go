package solver

import (
	"math/big"

	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
)

// RouterProfit is the ETH-denominated margin of routing maxInput of the
// order's output token at marketPrice against paying the order its ratio.
// All arguments are 1e18-scaled; the result is signed and exact.
func RouterProfit(maxInput, marketPrice, orderRatio, inputToEthPrice *big.Int) *big.Int {
	income := fixedpoint.Mul18(maxInput, marketPrice)
	cost := fixedpoint.Mul18(maxInput, orderRatio)
	margin := income.Sub(income, cost)
	return fixedpoint.Mul18(margin, inputToEthPrice)
}

// ClearProfit is the ETH-denominated surplus of clearing clearSize of the
// order's output token against a counterparty order priced at
// counterpartyRatio. The surplus materializes in the order's input token,
// hence the input-side ETH price.
func ClearProfit(clearSize, counterpartyRatio, orderRatio, inputToEthPrice *big.Int) *big.Int {
	proceeds := fixedpoint.Div18(clearSize, counterpartyRatio)
	payment := fixedpoint.Mul18(clearSize, orderRatio)
	surplus := proceeds.Sub(proceeds, payment)
	return fixedpoint.Mul18(surplus, inputToEthPrice)
}
