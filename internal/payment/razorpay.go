package payment

import (
	"fmt"
	"math"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// Gateway is the payment collaborator boundary: create a gateway order for
// an amount in the smallest currency unit, and verify the signed success
// callback.
type Gateway interface {
	CreateOrder(amountPaise int64, currency, receipt string) (string, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

// ToPaise converts a decimal rupee total to paise with a single
// multiplication. No further scaling is ever applied to the amount.
func ToPaise(total float64) int64 {
	return int64(math.Round(total * 100))
}

type RazorpayGateway struct {
	client *razorpay.Client
	secret string
}

func NewRazorpayGateway(key, secret string) *RazorpayGateway {
	return &RazorpayGateway{
		client: razorpay.NewClient(key, secret),
		secret: secret,
	}
}

func (g *RazorpayGateway) CreateOrder(amountPaise int64, currency, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay: create order: %w", err)
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay: order response missing id")
	}
	return id, nil
}

func (g *RazorpayGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(params, signature, g.secret)
}
