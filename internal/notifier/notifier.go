package notifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go-raffle-engine/internal/model"
)

// Notifier is the outbound message collaborator. Sends are fire-and-forget:
// a failed send is logged by the caller and never rolls back the state
// change that triggered it.
type Notifier interface {
	Send(ctx context.Context, recipient, message string) error
}

// PaymentConfirmedMessage formats the buyer's confirmation listing their
// numbers, zero-padded the way the tickets are printed.
func PaymentConfirmedMessage(raffleName string, numbers []int) string {
	sorted := make([]int, len(numbers))
	copy(sorted, numbers)
	sort.Ints(sorted)

	formatted := make([]string, len(sorted))
	for i, n := range sorted {
		formatted[i] = fmt.Sprintf("%04d", n)
	}

	return fmt.Sprintf("🎉 *Pagamento Confirmado!*\n\nRifa: *%s*\nSeus números: %s\n\nBoa sorte! 🍀",
		raffleName, strings.Join(formatted, ", "))
}

// ReferralBonusMessage is sent to the inviter after their bonus numbers are
// granted.
func ReferralBonusMessage(raffleName string, numbers []int) string {
	sorted := make([]int, len(numbers))
	copy(sorted, numbers)
	sort.Ints(sorted)

	formatted := make([]string, len(sorted))
	for i, n := range sorted {
		formatted[i] = fmt.Sprintf("%04d", n)
	}

	return fmt.Sprintf("🎁 *Indicação Premiada!*\n\nRifa: *%s*\nSeus números bônus: %s",
		raffleName, strings.Join(formatted, ", "))
}

// PrizeWonMessage announces a hit prize number.
func PrizeWonMessage(raffleName string, prize model.WonPrize) string {
	return fmt.Sprintf("🏆 Número premiado %04d saiu na rifa %s (R$ %.2f)",
		prize.Number, raffleName, prize.Amount)
}
