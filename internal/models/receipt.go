package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	receiptPrefix      = "RCT"
	receiptCounterSeed = 100000
	receiptCounterLen  = 6
)

// Receipt acknowledges a claimed payment against an occupation.
type Receipt struct {
	ID           uuid.UUID `json:"id"`
	Number       string    `json:"number"`
	OccupationID uuid.UUID `json:"occupation_id"`
	PaymentID    uuid.UUID `json:"payment_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewReceipt(number string, occupationID, paymentID uuid.UUID) *Receipt {
	return &Receipt{
		ID:           uuid.New(),
		Number:       number,
		OccupationID: occupationID,
		PaymentID:    paymentID,
	}
}

// NextReceiptNumber returns "RCT" + counter + occupation number, where the
// counter starts at 100000 and increments from the previous receipt. The
// counter is read up to the occupation number, so it keeps working once it
// outgrows six digits.
func NextReceiptNumber(previous *Receipt, occupationNumber string) (string, error) {
	counter := receiptCounterSeed
	if previous != nil {
		digits, ok := strings.CutPrefix(previous.Number, receiptPrefix)
		if ok {
			digits, ok = strings.CutSuffix(digits, occupationNumber)
		}
		if !ok || len(digits) < receiptCounterLen {
			return "", fmt.Errorf("receipt number %q does not belong to occupation %s", previous.Number, occupationNumber)
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return "", fmt.Errorf("receipt number %q: %w", previous.Number, err)
		}
		counter = n + 1
	}
	return fmt.Sprintf("%s%d%s", receiptPrefix, counter, occupationNumber), nil
}
