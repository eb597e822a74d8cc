package domain

import (
	"fmt"
	"regexp"
)

// PaymentMethodType discriminates the PaymentMethod payload.
type PaymentMethodType string

const (
	PaymentMethodCash   PaymentMethodType = "cash"
	PaymentMethodCard   PaymentMethodType = "card"
	PaymentMethodWallet PaymentMethodType = "wallet"
	PaymentMethodUPI    PaymentMethodType = "upi"
)

// CardPayload identifies a tokenised card.
type CardPayload struct {
	Token string `json:"token"`
	Last4 string `json:"last4"`
}

// WalletPayload identifies a stored-value wallet.
type WalletPayload struct {
	WalletID string `json:"wallet_id"`
}

// UPIPayload identifies a UPI virtual payment address.
type UPIPayload struct {
	VPA string `json:"vpa"`
}

// PaymentMethod is a tagged variant: exactly the payload matching Type is set.
type PaymentMethod struct {
	Type   PaymentMethodType `json:"type"`
	Card   *CardPayload      `json:"card,omitempty"`
	Wallet *WalletPayload    `json:"wallet,omitempty"`
	UPI    *UPIPayload       `json:"upi,omitempty"`
}

var (
	last4Pattern = regexp.MustCompile(`^[0-9]{4}$`)
	vpaPattern   = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
)

// Validate checks that the payload matches the declared type and nothing else is set.
func (m PaymentMethod) Validate() error {
	set := 0
	for _, ok := range []bool{m.Card != nil, m.Wallet != nil, m.UPI != nil} {
		if ok {
			set++
		}
	}

	switch m.Type {
	case PaymentMethodCash:
		if set != 0 {
			return fmt.Errorf("%w: cash payment takes no payload", ErrValidation)
		}
	case PaymentMethodCard:
		if m.Card == nil || set != 1 {
			return fmt.Errorf("%w: card payment requires a card payload", ErrValidation)
		}
		if m.Card.Token == "" || !last4Pattern.MatchString(m.Card.Last4) {
			return fmt.Errorf("%w: card token and last4 are required", ErrValidation)
		}
	case PaymentMethodWallet:
		if m.Wallet == nil || set != 1 {
			return fmt.Errorf("%w: wallet payment requires a wallet payload", ErrValidation)
		}
		if m.Wallet.WalletID == "" {
			return fmt.Errorf("%w: wallet id is required", ErrValidation)
		}
	case PaymentMethodUPI:
		if m.UPI == nil || set != 1 {
			return fmt.Errorf("%w: upi payment requires a upi payload", ErrValidation)
		}
		if !vpaPattern.MatchString(m.UPI.VPA) {
			return fmt.Errorf("%w: invalid upi address", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, m.Type)
	}
	return nil
}

func (m PaymentMethod) clone() PaymentMethod {
	if m.Card != nil {
		c := *m.Card
		m.Card = &c
	}
	if m.Wallet != nil {
		w := *m.Wallet
		m.Wallet = &w
	}
	if m.UPI != nil {
		u := *m.UPI
		m.UPI = &u
	}
	return m
}

// PaymentReceipt is the result of a successful passenger payment.
type PaymentReceipt struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}
