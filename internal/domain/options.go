package domain

// DeliveryMethod is one entry in the static delivery option table.
type DeliveryMethod struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Fee   int64  `json:"fee"`
}

// PaymentMethod is one entry in the static payment option table.
type PaymentMethod struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Desc  string `json:"desc"`
}

// Delivery and payment method values.
const (
	DeliveryStandard = "standard"
	DeliveryExpress  = "express"

	PaymentAlipay     = "alipay"
	PaymentWechat     = "wechat"
	PaymentCreditCard = "creditcard"
)

// DeliveryMethods returns the static delivery option table.
func DeliveryMethods() []DeliveryMethod {
	return []DeliveryMethod{
		{Value: DeliveryStandard, Label: "标准配送 (免费)", Fee: 0},
		{Value: DeliveryExpress, Label: "快速配送 (¥15.00)", Fee: 1500},
	}
}

// PaymentMethods returns the static payment option table.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		{Value: PaymentAlipay, Label: "支付宝", Desc: "推荐使用支付宝快捷支付"},
		{Value: PaymentWechat, Label: "微信支付", Desc: "使用微信扫码支付"},
		{Value: PaymentCreditCard, Label: "信用卡", Desc: "支持Visa、Mastercard等"},
	}
}

// DeliveryFee looks up the fee for the given delivery method value.
// Unknown values cost nothing.
func DeliveryFee(value string) int64 {
	for _, m := range DeliveryMethods() {
		if m.Value == value {
			return m.Fee
		}
	}
	return 0
}

// PaymentMethodLabel returns the display name for a payment method value,
// falling back to the value itself when unknown.
func PaymentMethodLabel(value string) string {
	for _, m := range PaymentMethods() {
		if m.Value == value {
			return m.Label
		}
	}
	return value
}

// CardForm is the credit-card payment form. All five fields are required
// before a creditcard payment may complete.
type CardForm struct {
	Number      string `json:"number" validate:"required"`
	HolderName  string `json:"holderName" validate:"required"`
	ExpiryMonth string `json:"expiryMonth" validate:"required"`
	ExpiryYear  string `json:"expiryYear" validate:"required"`
	CVV         string `json:"cvv" validate:"required"`
}
