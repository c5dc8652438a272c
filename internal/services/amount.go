package services

import (
	"fmt"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
)

// wholeAmount проверяет, что сумма положительная и целая (баланс хранится в целых единицах).
func wholeAmount(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() || !d.Equal(d.Truncate(0)) {
		return 0, ErrInvalidAmount
	}
	return d.IntPart(), nil
}

// amountInWords - "1500 (one thousand five hundred)" для текстов уведомлений.
func amountInWords(amount int64) string {
	if amount < 0 || amount > int64(^uint32(0)>>1) {
		return fmt.Sprintf("%d", amount)
	}
	return fmt.Sprintf("%d (%s)", amount, num2words.Convert(int(amount)))
}
