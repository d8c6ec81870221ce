package router

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/rainlanguage/rain.solver-sub002/internal/config"
	"github.com/rainlanguage/rain.solver-sub002/internal/fixedpoint"
	"github.com/rainlanguage/rain.solver-sub002/internal/models"
)

// HTTPBackend quotes against an aggregator's HTTP API. All three backend
// kinds speak the same request/response shape; only the endpoint differs.
type HTTPBackend struct {
	RouteKind models.RouteKind
	Endpoint  string
	Client    *http.Client
}

// NewBackends builds the enabled backends from config.
func NewBackends(cfg config.RouterConfig) ([]Backend, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	var out []Backend
	for _, bc := range cfg.Backends {
		if !bc.Enabled {
			continue
		}
		kind := models.RouteKind(bc.Kind)
		switch kind {
		case models.RouteKindRouteProcessor, models.RouteKindBalancer, models.RouteKindStabull:
		default:
			return nil, fmt.Errorf("router backend kind %q is unknown", bc.Kind)
		}
		out = append(out, &HTTPBackend{RouteKind: kind, Endpoint: bc.Endpoint, Client: client})
	}
	return out, nil
}

func (b *HTTPBackend) Kind() models.RouteKind { return b.RouteKind }

type quoteResponse struct {
	Status    string   `json:"status"`
	AmountOut string   `json:"amountOut"`
	Price     string   `json:"price"`
	Route     []string `json:"route"`
	RouteCode string   `json:"routeCode"`
}

// Quote asks the backend for the best route. Amounts cross the wire in the
// token's native decimals; the response is normalized back to 1e18.
func (b *HTTPBackend) Quote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	amountIn := fixedpoint.ScaleFrom18(req.AmountIn, req.FromToken.Decimals)

	q := url.Values{}
	q.Set("tokenIn", req.FromToken.Address.Hex())
	q.Set("tokenOut", req.ToToken.Address.Hex())
	q.Set("amount", amountIn.String())
	if req.GasPrice != nil {
		q.Set("gasPrice", req.GasPrice.String())
	}
	if req.BlockNumber > 0 {
		q.Set("blockNumber", fmt.Sprintf("%d", req.BlockNumber))
	}
	if req.SkipFetch {
		q.Set("skipFetch", "true")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoRoute
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("router %s: status %d", b.RouteKind, resp.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("router %s: decode: %w", b.RouteKind, err)
	}
	if body.Status == "NoWay" || body.AmountOut == "" {
		return nil, ErrNoRoute
	}

	amountOut, ok := new(big.Int).SetString(body.AmountOut, 10)
	if !ok {
		return nil, fmt.Errorf("router %s: bad amountOut %q", b.RouteKind, body.AmountOut)
	}
	amountOut18 := fixedpoint.Scale18(amountOut, req.ToToken.Decimals)

	// Prefer the backend's own price when present, otherwise derive it
	// from the amounts.
	var price *big.Int
	if body.Price != "" {
		price, ok = new(big.Int).SetString(body.Price, 10)
		if !ok {
			return nil, fmt.Errorf("router %s: bad price %q", b.RouteKind, body.Price)
		}
	} else if req.AmountIn.Sign() > 0 {
		price = fixedpoint.Div18(amountOut18, req.AmountIn)
	} else {
		price = big.NewInt(0)
	}

	var routeData []byte
	if body.RouteCode != "" {
		routeData, err = hexutil.Decode(body.RouteCode)
		if err != nil {
			return nil, fmt.Errorf("router %s: bad routeCode: %w", b.RouteKind, err)
		}
	}

	return &models.Quote{
		AmountOut:   amountOut18,
		Price:       price,
		Kind:        b.RouteKind,
		RouteVisual: body.Route,
		RouteData:   routeData,
	}, nil
}
