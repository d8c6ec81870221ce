package handler

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/rainlanguage/rain.solver-sub002/internal/models"
	"github.com/rainlanguage/rain.solver-sub002/internal/orderbook"
)

// OrdersHandler is the external feed for the order registry. Whatever
// watches the books (subgraph tailer, indexer, manual ops) pushes order
// upserts and removals through it.
type OrdersHandler struct {
	Registry *orderbook.Registry
}

func (h *OrdersHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/orders", h.list)
	r.POST("/api/v1/orders", h.upsert)
	r.DELETE("/api/v1/orders/:orderbook/:id", h.remove)
}

type tokenPayload struct {
	Address  string `json:"address" binding:"required"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

type orderPayload struct {
	Orderbook string       `json:"orderbook" binding:"required"`
	OrderID   string       `json:"orderId" binding:"required"`
	Owner     string       `json:"owner" binding:"required"`
	Version   uint8        `json:"version"`
	SellToken tokenPayload `json:"sellToken" binding:"required"`
	BuyToken  tokenPayload `json:"buyToken" binding:"required"`
	// Ratio and MaxOutput are 1e18-scaled decimal integers.
	Ratio     string `json:"ratio" binding:"required"`
	MaxOutput string `json:"maxOutput" binding:"required"`
}

func (h *OrdersHandler) list(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusServiceUnavailable, "registry unavailable", nil)
		return
	}
	orders := h.Registry.All()
	out := make([]orderPayload, len(orders))
	for i, o := range orders {
		out[i] = orderPayload{
			Orderbook: o.Orderbook.Hex(),
			OrderID:   o.OrderID.Hex(),
			Owner:     o.Owner.Hex(),
			Version:   o.Version,
			SellToken: tokenPayload{Address: o.SellToken.Address.Hex(), Decimals: o.SellToken.Decimals, Symbol: o.SellToken.Symbol},
			BuyToken:  tokenPayload{Address: o.BuyToken.Address.Hex(), Decimals: o.BuyToken.Decimals, Symbol: o.BuyToken.Symbol},
			Ratio:     o.Quote.Ratio.String(),
			MaxOutput: o.Quote.MaxOutput.String(),
		}
	}
	Ok(c, out, map[string]any{"count": len(out)})
}

func (h *OrdersHandler) upsert(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusServiceUnavailable, "registry unavailable", nil)
		return
	}
	var req orderPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	pair, err := req.toPair()
	if err != "" {
		Error(c, http.StatusBadRequest, err, nil)
		return
	}
	h.Registry.Add(pair)
	Ok(c, gin.H{"orderId": pair.OrderID.Hex()}, nil)
}

func (h *OrdersHandler) remove(c *gin.Context) {
	if h.Registry == nil {
		Error(c, http.StatusServiceUnavailable, "registry unavailable", nil)
		return
	}
	book := c.Param("orderbook")
	if !common.IsHexAddress(book) {
		Error(c, http.StatusBadRequest, "orderbook is not an address", nil)
		return
	}
	h.Registry.Remove(common.HexToAddress(book), common.HexToHash(c.Param("id")))
	Ok(c, nil, nil)
}

func (r orderPayload) toPair() (models.Pair, string) {
	if !common.IsHexAddress(r.Orderbook) {
		return models.Pair{}, "orderbook is not an address"
	}
	if !common.IsHexAddress(r.Owner) {
		return models.Pair{}, "owner is not an address"
	}
	if !common.IsHexAddress(r.SellToken.Address) || !common.IsHexAddress(r.BuyToken.Address) {
		return models.Pair{}, "token address is invalid"
	}
	ratio, ok := new(big.Int).SetString(r.Ratio, 10)
	if !ok || ratio.Sign() < 0 {
		return models.Pair{}, "ratio is not a non-negative integer"
	}
	maxOutput, ok := new(big.Int).SetString(r.MaxOutput, 10)
	if !ok || maxOutput.Sign() <= 0 {
		return models.Pair{}, "maxOutput is not a positive integer"
	}
	return models.Pair{
		Orderbook: common.HexToAddress(r.Orderbook),
		OrderID:   common.HexToHash(r.OrderID),
		Owner:     common.HexToAddress(r.Owner),
		Version:   r.Version,
		SellToken: models.TokenMeta{Address: common.HexToAddress(r.SellToken.Address), Decimals: r.SellToken.Decimals, Symbol: r.SellToken.Symbol},
		BuyToken:  models.TokenMeta{Address: common.HexToAddress(r.BuyToken.Address), Decimals: r.BuyToken.Decimals, Symbol: r.BuyToken.Symbol},
		Quote:     &models.OrderQuote{Ratio: ratio, MaxOutput: maxOutput},
	}, ""
}
