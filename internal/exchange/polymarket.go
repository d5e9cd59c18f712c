package exchange

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/domain"
	"github.com/marketengine/binary-engine/pkg/types"
)

// Config holds the credentials and endpoint needed to trade against the
// live CLOB.
type Config struct {
	PrivateKey    string
	APIKey        string
	Secret        string
	Passphrase    string
	Address       string
	ProxyAddress  string
	SignatureType int
	ChainID       int64
	BaseURL       string
	HTTPTimeout   time.Duration
	Logger        *zap.Logger
}

// Polymarket places and cancels orders against the live Polymarket CLOB,
// signing each order locally with the configured private key.
type Polymarket struct {
	cfg          Config
	privateKey   *ecdsa.PrivateKey
	address      string
	orderBuilder builder.ExchangeOrderBuilder
	httpClient   *http.Client
	logger       *zap.Logger

	mu      sync.Mutex
	handler FillHandler
}

// NewPolymarket constructs a live CLOB client and derives the signer
// address from the configured private key.
func NewPolymarket(cfg Config) (*Polymarket, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	address := cfg.Address
	if address == "" {
		publicKey := privateKey.Public()
		publicKeyECDSA, _ := publicKey.(*ecdsa.PublicKey)
		address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID = big.NewInt(137)
	}

	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Polymarket{
		cfg:          cfg,
		privateKey:   privateKey,
		address:      address,
		orderBuilder: builder.NewExchangeOrderBuilderImpl(chainID, nil),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       cfg.Logger,
	}, nil
}

// PlaceOrder signs and submits a single order for intent. post_only=true
// places a GTC maker order; false places a FOK taker order.
func (p *Polymarket) PlaceOrder(ctx context.Context, intent *domain.Intent, postOnly bool) (string, error) {
	makerAddress := p.address
	if p.cfg.ProxyAddress != "" {
		makerAddress = p.cfg.ProxyAddress
	}

	side := model.BUY
	if intent.Side == domain.Sell {
		side = model.SELL
	}

	tokens := intent.Size
	makerAmount := usdToRawAmount(tokens * intent.Price)
	takerAmount := usdToRawAmount(tokens)

	orderData := &model.OrderData{
		Maker:         makerAddress,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       intent.TokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          side,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        p.address,
		Expiration:    "0",
		SignatureType: model.SignatureType(p.cfg.SignatureType),
	}

	signed, err := p.orderBuilder.BuildSignedOrder(p.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return "", fmt.Errorf("build order: %w", err)
	}

	orderType := "FOK"
	if postOnly {
		orderType = "GTC"
	}

	resp, err := p.submitOrder(ctx, signed, orderType)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &types.OrderError{Code: resp.ErrorMsg, Message: resp.ErrorMsg, OrderID: resp.OrderID, Side: string(intent.Side)}
	}
	return resp.OrderID, nil
}

// CancelOrder cancels a single order by id.
func (p *Polymarket) CancelOrder(ctx context.Context, orderID string) error {
	body, err := json.Marshal(map[string]string{"orderID": orderID})
	if err != nil {
		return fmt.Errorf("marshal cancel request: %w", err)
	}
	_, err = p.authedRequest(ctx, http.MethodDelete, "/order", body)
	return err
}

// CancelAllOrders cancels every open order for this account and returns
// how many were cancelled.
func (p *Polymarket) CancelAllOrders(ctx context.Context) (int, error) {
	respBody, err := p.authedRequest(ctx, http.MethodDelete, "/cancel-all", nil)
	if err != nil {
		return 0, err
	}

	var out struct {
		Cancelled []string `json:"canceled"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return 0, fmt.Errorf("parse cancel-all response: %w", err)
	}
	return len(out.Cancelled), nil
}

// ListOpenOrders returns every currently open order for this account.
func (p *Polymarket) ListOpenOrders(ctx context.Context) ([]*domain.OpenOrder, error) {
	respBody, err := p.authedRequest(ctx, http.MethodGet, "/orders?market="+p.address, nil)
	if err != nil {
		return nil, err
	}

	var raw []types.OrderQueryResponse
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("parse orders response: %w", err)
	}

	out := make([]*domain.OpenOrder, 0, len(raw))
	for _, r := range raw {
		createdTSMs, _ := strconv.ParseInt(r.CreatedAt, 10, 64)
		out = append(out, &domain.OpenOrder{
			OrderID:     r.OrderID,
			TokenID:     r.TokenID,
			Side:        domain.Side(r.Side),
			Price:       r.Price,
			Size:        r.Size,
			FilledSize:  r.SizeFilled,
			CreatedTSMs: createdTSMs,
		})
	}
	return out, nil
}

// OnFill stores the fill callback. This client opens no user-channel
// connection and never invokes the handler, so fills on live orders are
// not reported through it.
func (p *Polymarket) OnFill(handler FillHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
}

// Close releases client resources. The HTTP client has nothing to close.
func (p *Polymarket) Close() error {
	return nil
}

func (p *Polymarket) submitOrder(ctx context.Context, order *model.SignedOrder, orderType string) (*types.OrderSubmissionResponse, error) {
	jsonOrder := p.convertToOrderJSON(order)
	reqBody, err := json.Marshal(types.OrderSubmissionRequest{
		Order:     jsonOrder,
		Owner:     p.cfg.APIKey,
		OrderType: orderType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	respBody, err := p.authedRequest(ctx, http.MethodPost, "/order", reqBody)
	if err != nil {
		return nil, err
	}

	var resp types.OrderSubmissionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}
	return &resp, nil
}

func (p *Polymarket) convertToOrderJSON(order *model.SignedOrder) types.SignedOrderJSON {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}
	return types.SignedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

// authedRequest signs and sends an HMAC-authenticated request to the CLOB,
// returning the raw response body on success.
func (p *Polymarket) authedRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signaturePayload := timestamp + method + path + string(body)

	secretBytes, err := base64.URLEncoding.DecodeString(p.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	url := strings.TrimRight(p.cfg.BaseURL, "/") + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", p.cfg.APIKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", p.cfg.Passphrase)
	req.Header.Set("POLY_ADDRESS", p.address)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("clob error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func usdToRawAmount(usd float64) string {
	return strconv.FormatInt(int64(usd*1_000_000), 10)
}
