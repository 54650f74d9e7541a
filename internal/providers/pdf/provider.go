package pdf

import (
	"context"
	"io"
)

type ReceiptItem struct {
	Name      string
	Qty       int
	UnitPrice string
	Amount    string
}

type ReceiptData struct {
	StoreName   string
	StoreEmail  string
	OrderNumber string
	OrderDate   string
	DatePaid    string

	BillToName  string
	BillToEmail string
	ShipTo      string

	Items []ReceiptItem
	Total string
}

type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
	return nil, nil
}
