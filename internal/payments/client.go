package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/denizkaplan/lunera-backend/pkg/config"
	"github.com/denizkaplan/lunera-backend/pkg/db/models"
	pkgerrors "github.com/denizkaplan/lunera-backend/pkg/errors"
)

const (
	initializePath = "/checkoutform/initialize"
	resultPath     = "/checkoutform/result"
)

// gatewayClient is the HTTP implementation of Gateway for the hosted
// checkout form provider.
type gatewayClient struct {
	httpClient *http.Client
	cfg        config.GatewayConfig
}

// NewGatewayClient builds the HTTP gateway adapter. The client timeout bounds
// every call including verification, so a hung provider fails soft.
func NewGatewayClient(cfg config.GatewayConfig) (Gateway, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway base url required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gateway api key required")
	}
	return &gatewayClient{
		httpClient: &http.Client{Timeout: cfg.VerifyTimeout},
		cfg:        cfg,
	}, nil
}

type basketItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

type initializeRequest struct {
	ConversationID string       `json:"conversationId"`
	Price          string       `json:"price"`
	PaidPrice      string       `json:"paidPrice"`
	Currency       string       `json:"currency"`
	CallbackURL    string       `json:"callbackUrl"`
	BuyerName      string       `json:"buyerName"`
	BuyerEmail     string       `json:"buyerEmail"`
	BasketItems    []basketItem `json:"basketItems"`
}

type initializeResponse struct {
	Status              string `json:"status"`
	Token               string `json:"token"`
	CheckoutFormContent string `json:"checkoutFormContent"`
	PaymentPageURL      string `json:"paymentPageUrl"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

type resultRequest struct {
	Token string `json:"token"`
}

type resultResponse struct {
	Status         string `json:"status"`
	PaymentStatus  string `json:"paymentStatus"`
	PaymentID      string `json:"paymentId"`
	PaidPrice      string `json:"paidPrice"`
	ConversationID string `json:"conversationId"`
	ErrorCode      string `json:"errorCode"`
	ErrorMessage   string `json:"errorMessage"`
}

// Initialize builds the session request from the persisted order rows only.
// Nothing from the initiating HTTP request reaches the basket.
func (c *gatewayClient) Initialize(ctx context.Context, order *models.Order) (*CheckoutSession, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}

	items := make([]basketItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, basketItem{
			ID:       item.ProductID.String(),
			Name:     item.Title,
			Price:    item.TotalPrice.StringFixed(2),
			Quantity: item.Quantity,
		})
	}

	req := initializeRequest{
		ConversationID: order.ID.String(),
		Price:          order.Subtotal.StringFixed(2),
		PaidPrice:      order.TotalAmount.StringFixed(2),
		Currency:       "TRY",
		CallbackURL:    c.cfg.CallbackURL,
		BuyerName:      order.CustomerName,
		BuyerEmail:     order.CustomerEmail,
		BasketItems:    items,
	}

	var resp initializeResponse
	if err := c.post(ctx, initializePath, req, &resp); err != nil {
		return nil, err
	}
	if !strings.EqualFold(resp.Status, "success") {
		return nil, pkgerrors.Newf(pkgerrors.CodeGateway, "gateway rejected initialization (%s)", resp.ErrorCode).
			WithDetails(map[string]string{"error_code": resp.ErrorCode})
	}
	if resp.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "gateway returned no session token")
	}

	return &CheckoutSession{
		Token:               resp.Token,
		CheckoutFormContent: resp.CheckoutFormContent,
		PaymentPageURL:      resp.PaymentPageURL,
	}, nil
}

// RetrieveResult verifies a callback token server-to-server and normalizes
// the provider response into the closed Result type.
func (c *gatewayClient) RetrieveResult(ctx context.Context, token string) (*Result, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback token required")
	}

	var resp resultResponse
	if err := c.post(ctx, resultPath, resultRequest{Token: token}, &resp); err != nil {
		return nil, err
	}

	result := &Result{
		PaymentID:      resp.PaymentID,
		ConversationID: resp.ConversationID,
		ErrorCode:      resp.ErrorCode,
		ErrorMessage:   resp.ErrorMessage,
	}

	if strings.EqualFold(resp.Status, "success") && strings.EqualFold(resp.PaymentStatus, "SUCCESS") {
		paid, err := decimal.NewFromString(resp.PaidPrice)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "gateway returned unparsable paid price")
		}
		result.Outcome = OutcomeSuccess
		result.PaidAmount = paid
		return result, nil
	}

	result.Outcome = OutcomeFailure
	return result, nil
}

func (c *gatewayClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.Newf(pkgerrors.CodeGateway, "gateway returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode gateway response")
	}
	return nil
}
