package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kiranalabs/kirana/internal/gateway/domain"
)

const hdfcBaseURL = "https://payments.hdfcbank.com/api/v1"

// hdfcClient talks to the HDFC payment gateway. Requests are signed with the
// merchant working key over the raw body.
type hdfcClient struct {
	merchantID string
	accessCode string
	workingKey string
	client     *http.Client
}

func newHDFCClient(merchantID, accessCode, workingKey string, client *http.Client) *hdfcClient {
	return &hdfcClient{
		merchantID: strings.TrimSpace(merchantID),
		accessCode: strings.TrimSpace(accessCode),
		workingKey: strings.TrimSpace(workingKey),
		client:     client,
	}
}

type hdfcOrder struct {
	OrderID  string `json:"order_id"`
	Status   string `json:"order_status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type hdfcPayment struct {
	TrackingID string `json:"tracking_id"`
	OrderID    string `json:"order_id"`
	Status     string `json:"payment_status"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	PayMode    string `json:"payment_mode"`
	Email      string `json:"billing_email"`
	Phone      string `json:"billing_tel"`
	TransDate  string `json:"trans_date"`
}

type hdfcPaymentList struct {
	Payments []hdfcPayment `json:"payments"`
}

type hdfcRefund struct {
	RefundID   string `json:"refund_id"`
	TrackingID string `json:"tracking_id"`
	Status     string `json:"refund_status"`
	Amount     int64  `json:"amount"`
}

type hdfcError struct {
	ErrorCode string `json:"error_code"`
	ErrorDesc string `json:"error_desc"`
}

func (c *hdfcClient) CreateOrder(ctx context.Context, params domain.CreateOrderParams) (*domain.GatewayOrder, error) {
	body := map[string]interface{}{
		"merchant_id": c.merchantID,
		"amount":      params.AmountCents,
		"currency":    params.Currency,
		"merchant_reference": params.Receipt,
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/orders", body)
	if err != nil {
		return nil, err
	}

	var order hdfcOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, err
	}
	if order.OrderID == "" {
		return nil, fmt.Errorf("%w: empty order response", domain.ErrGatewayUnavailable)
	}

	return &domain.GatewayOrder{
		ID:          order.OrderID,
		Status:      order.Status,
		AmountCents: order.Amount,
		Currency:    order.Currency,
	}, nil
}

func (c *hdfcClient) FetchPayment(ctx context.Context, paymentID string) (*domain.GatewayPayment, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}

	var payment hdfcPayment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, err
	}
	if payment.TrackingID == "" {
		return nil, nil
	}
	return convertHDFCPayment(payment, raw), nil
}

func (c *hdfcClient) FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]domain.GatewayPayment, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/orders/"+gatewayOrderID+"/payments", nil)
	if err != nil {
		return nil, err
	}

	var list hdfcPaymentList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}

	payments := make([]domain.GatewayPayment, 0, len(list.Payments))
	for _, item := range list.Payments {
		itemRaw, _ := json.Marshal(item)
		payments = append(payments, *convertHDFCPayment(item, itemRaw))
	}
	return payments, nil
}

func (c *hdfcClient) CreateRefund(ctx context.Context, paymentID string, amountCents int64) (*domain.GatewayRefund, error) {
	body := map[string]interface{}{
		"merchant_id": c.merchantID,
		"tracking_id": paymentID,
	}
	if amountCents > 0 {
		body["amount"] = amountCents
	}

	raw, err := c.doRequest(ctx, http.MethodPost, "/refunds", body)
	if err != nil {
		return nil, err
	}

	var refund hdfcRefund
	if err := json.Unmarshal(raw, &refund); err != nil {
		return nil, err
	}
	return &domain.GatewayRefund{
		ID:          refund.RefundID,
		PaymentID:   refund.TrackingID,
		Status:      refund.Status,
		AmountCents: refund.Amount,
	}, nil
}

func (c *hdfcClient) doRequest(ctx context.Context, method, path string, body map[string]interface{}) ([]byte, error) {
	if c.merchantID == "" || c.accessCode == "" || c.workingKey == "" {
		return nil, domain.ErrUnsupportedGateway
	}

	var payload []byte
	var reader io.Reader
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, hdfcBaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Merchant-Id", c.merchantID)
	req.Header.Set("X-Access-Code", c.accessCode)
	req.Header.Set("X-Signature", c.sign(payload))
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
		var apiErr hdfcError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.ErrorDesc != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, apiErr.ErrorDesc)
		}
		return nil, fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	return raw, nil
}

func (c *hdfcClient) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(c.workingKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func convertHDFCPayment(payment hdfcPayment, raw []byte) *domain.GatewayPayment {
	var rawMap map[string]interface{}
	_ = json.Unmarshal(raw, &rawMap)

	createdAt, _ := time.Parse("02/01/2006 15:04:05", payment.TransDate)

	return &domain.GatewayPayment{
		ID:          payment.TrackingID,
		OrderID:     payment.OrderID,
		Status:      payment.Status,
		AmountCents: payment.Amount,
		Currency:    payment.Currency,
		Method:      payment.PayMode,
		Email:       payment.Email,
		Contact:     payment.Phone,
		CreatedAt:   createdAt.UTC(),
		Raw:         rawMap,
	}
}
