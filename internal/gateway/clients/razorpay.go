package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiranalabs/kirana/internal/gateway/domain"
)

const razorpayBaseURL = "https://api.razorpay.com/v1"

type razorpayClient struct {
	keyID     string
	keySecret string
	client    *http.Client
}

func newRazorpayClient(keyID, keySecret string, client *http.Client) *razorpayClient {
	return &razorpayClient{
		keyID:     strings.TrimSpace(keyID),
		keySecret: strings.TrimSpace(keySecret),
		client:    client,
	}
}

type razorpayOrder struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type razorpayPayment struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Method    string `json:"method"`
	Email     string `json:"email"`
	Contact   string `json:"contact"`
	CreatedAt int64  `json:"created_at"`
}

type razorpayPaymentList struct {
	Count int               `json:"count"`
	Items []razorpayPayment `json:"items"`
}

type razorpayRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *razorpayClient) CreateOrder(ctx context.Context, params domain.CreateOrderParams) (*domain.GatewayOrder, error) {
	body := map[string]interface{}{
		"amount":   params.AmountCents,
		"currency": params.Currency,
		"receipt":  params.Receipt,
	}
	if len(params.Notes) > 0 {
		body["notes"] = params.Notes
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/orders", body)
	if err != nil {
		return nil, err
	}

	var order razorpayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: empty order response", domain.ErrGatewayUnavailable)
	}

	return &domain.GatewayOrder{
		ID:          order.ID,
		Status:      order.Status,
		AmountCents: order.Amount,
		Currency:    order.Currency,
	}, nil
}

func (c *razorpayClient) FetchPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	var payment razorpayPayment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, err
	}
	if payment.ID == "" {
		return nil, nil
	}
	return convertRazorpayPayment(payment, raw), nil
}

func (c *razorpayClient) FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]domain.GatewayPayment, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/orders/"+gatewayOrderID+"/payments", nil)
	if err != nil {
		return nil, err
	}

	var list razorpayPaymentList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}

	payments := make([]domain.GatewayPayment, 0, len(list.Items))
	for _, item := range list.Items {
		itemRaw, _ := json.Marshal(item)
		payments = append(payments, *convertRazorpayPayment(item, itemRaw))
	}
	return payments, nil
}

func (c *razorpayClient) CreateRefund(ctx context.Context, paymentID string, amountCents int64) (*domain.GatewayRefund, error) {
	body := map[string]interface{}{}
	if amountCents > 0 {
		body["amount"] = amountCents
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", body)
	if err != nil {
		return nil, err
	}

	var refund razorpayRefund
	if err := json.Unmarshal(raw, &refund); err != nil {
		return nil, err
	}
	return &domain.GatewayRefund{
		ID:          refund.ID,
		PaymentID:   refund.PaymentID,
		Status:      refund.Status,
		AmountCents: refund.Amount,
	}, nil
}

func (c *razorpayClient) doRequest(ctx context.Context, method, path string, body map[string]interface{}) ([]byte, error) {
	if c.keyID == "" || c.keySecret == "" {
		return nil, domain.ErrUnsupportedGateway
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, razorpayBaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr razorpayError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	return raw, nil
}

func convertRazorpayPayment(payment razorpayPayment, raw []byte) *domain.GatewayPayment {
	var rawMap map[string]interface{}
	_ = json.Unmarshal(raw, &rawMap)

	return &domain.GatewayPayment{
		ID:          payment.ID,
		OrderID:     payment.OrderID,
		Status:      payment.Status,
		AmountCents: payment.Amount,
		Currency:    payment.Currency,
		Method:      payment.Method,
		Email:       payment.Email,
		Contact:     payment.Contact,
		CreatedAt:   time.Unix(payment.CreatedAt, 0).UTC(),
		Raw:         rawMap,
	}
}
