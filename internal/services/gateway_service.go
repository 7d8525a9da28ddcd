package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/shopspring/decimal"

	"matricula_app_echo/internal/models"
)

// GatewayService wraps the card gateway. A charge result is treated by the
// ledger as already-settled money, equivalent to an approved voucher.
type GatewayService struct {
	CoreClient coreapi.Client
}

func NewGatewayService() *GatewayService {
	serverKey := os.Getenv("MIDTRANS_SERVER_KEY")
	clientKey := os.Getenv("MIDTRANS_CLIENT_KEY")
	envStr := os.Getenv("MIDTRANS_IS_PRODUCTION")

	env := midtrans.Sandbox
	if envStr == "true" {
		env = midtrans.Production
	}

	var c coreapi.Client
	c.New(serverKey, env)

	midtrans.ServerKey = serverKey
	midtrans.ClientKey = clientKey
	midtrans.Environment = env

	return &GatewayService{CoreClient: c}
}

// ChargeResult is the settled outcome of one card charge
type ChargeResult struct {
	OrderID     string
	Status      string
	Amount      decimal.Decimal
	RawResponse json.RawMessage
}

// ChargeCard charges a saved card token. Returns a GatewayError on any
// gateway-side failure; callers must not persist anything in that case.
func (s *GatewayService) ChargeCard(orderID string, amount decimal.Decimal, cardToken string) (*ChargeResult, error) {
	req := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeCreditCard,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount.IntPart(),
		},
		CreditCard: &coreapi.CreditCardDetails{
			TokenID: cardToken,
		},
	}

	resp, chargeErr := s.CoreClient.ChargeTransaction(req)
	if chargeErr != nil {
		return nil, &models.GatewayError{Gateway: string(models.PaymentGatewayMidtrans), Err: chargeErr}
	}

	switch resp.TransactionStatus {
	case "capture", "settlement":
		// settled
	default:
		return nil, &models.GatewayError{
			Gateway: string(models.PaymentGatewayMidtrans),
			Err:     fmt.Errorf("charge %s not settled: status=%s", orderID, resp.TransactionStatus),
		}
	}

	raw, _ := json.Marshal(resp)
	return &ChargeResult{
		OrderID:     resp.OrderID,
		Status:      resp.TransactionStatus,
		Amount:      amount,
		RawResponse: raw,
	}, nil
}

// CancelTransaction voids a charge at the gateway, used when ledger writes
// fail after a successful charge
func (s *GatewayService) CancelTransaction(orderID string) error {
	_, err := s.CoreClient.CancelTransaction(orderID)
	if err != nil {
		return &models.GatewayError{Gateway: string(models.PaymentGatewayMidtrans), Err: err}
	}
	return nil
}
