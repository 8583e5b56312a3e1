// Package pricing implements the sale computation engine: deterministic
// subtotal, discount, and reward-point arithmetic for a cart. It is pure and
// does no I/O; callers supply the customer's balance and prior transaction
// count and persist the result elsewhere.
//
// All currency amounts are held as Money (integer paise) internally. One
// reward point is worth one rupee of discount. Amounts are converted to whole
// rupees only when a quote is flattened for persistence.
package pricing

import (
	"errors"
	"math"
)

// Money is a currency amount in paise (1/100 rupee).
type Money int64

// FromRupees converts a display-unit amount to Money, rounding to the paisa.
func FromRupees(r float64) Money {
	return Money(math.Round(r * 100))
}

// Rupees returns the amount in display units.
func (m Money) Rupees() float64 {
	return float64(m) / 100
}

// FloorRupees returns the amount floored to whole rupees.
func (m Money) FloorRupees() int64 {
	if m < 0 {
		return -int64((-m + 99) / 100)
	}
	return int64(m / 100)
}

// WelcomePercent is the flat promotional discount applied on a customer's
// first transaction at a store.
const WelcomePercent = 15

// DefaultRewardPercent is the reward rate used when a store has not
// configured one.
const DefaultRewardPercent = 5

// maxRedeemShare caps points redemption at 10% of the pre-discount subtotal.
const maxRedeemShare = 10

var (
	// ErrEmptyCart is returned when a quote is requested for no items.
	ErrEmptyCart = errors.New("pricing: cart has no items")
	// ErrInvalidQuantity is returned for a non-positive item quantity.
	ErrInvalidQuantity = errors.New("pricing: item quantity must be positive")
	// ErrNegativePrice is returned for a negative unit price.
	ErrNegativePrice = errors.New("pricing: unit price must not be negative")
	// ErrPointsExceedLimit is returned when the redemption request exceeds
	// the customer's balance or the 10% subtotal cap.
	ErrPointsExceedLimit = errors.New("pricing: points to redeem exceed redeemable limit")
	// ErrNegativeTotal guards the invariant that a sale total is never
	// negative. With redemption capped it is unreachable, but the engine
	// rejects rather than clamps if an input ever violates it.
	ErrNegativeTotal = errors.New("pricing: discounts exceed subtotal")
)

// Item is one cart line. UnitPrice is captured at selection time; later
// product price changes do not affect an in-progress sale.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice Money
}

// Customer is the slice of the customer record the engine reads.
type Customer struct {
	ID           string
	RewardPoints int64
}

// Input collects everything a quote depends on.
type Input struct {
	Items          []Item
	Customer       *Customer // nil when no customer is selected
	PointsToRedeem int64
	// RewardPercent is the store-configured reward rate; zero or negative
	// falls back to DefaultRewardPercent.
	RewardPercent int64
	// PriorTransactions is the customer's transaction count at this store.
	// Zero qualifies the customer for the welcome discount.
	PriorTransactions int
}

// Quote is the computed pricing breakdown for one checkout attempt.
type Quote struct {
	Subtotal            Money
	MaxRedeemablePoints int64
	PointsRedeemed      int64
	DiscountFromPoints  Money
	WelcomePercent      int64
	DiscountFromPercent Money
	TotalDiscount       Money
	Total               Money
	Rewards             Money
	RewardPercent       int64
}

// Amounts is a quote flattened to the whole-rupee integers that get
// persisted on a transaction.
type Amounts struct {
	TotalBeforeDiscount int64
	DiscountFromPoints  int64
	DiscountFromPercent int64
	TotalDiscount       int64
	Total               int64
	PointsRedeemed      int64
	PointsEarned        int64
}

// Compute derives the full pricing breakdown for a cart.
//
// Redemption is validated strictly: requesting more points than
// min(customer balance, 10% of subtotal) is an error, not a silent clamp.
func Compute(in Input) (Quote, error) {
	if len(in.Items) == 0 {
		return Quote{}, ErrEmptyCart
	}

	var subtotal Money
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return Quote{}, ErrInvalidQuantity
		}
		if item.UnitPrice < 0 {
			return Quote{}, ErrNegativePrice
		}
		subtotal += item.UnitPrice * Money(item.Quantity)
	}

	// 10% of subtotal expressed in whole points (rupees).
	maxPoints := int64(subtotal) * maxRedeemShare / 100 / 100

	if in.PointsToRedeem < 0 {
		return Quote{}, ErrPointsExceedLimit
	}
	if in.PointsToRedeem > 0 {
		if in.Customer == nil {
			return Quote{}, ErrPointsExceedLimit
		}
		limit := maxPoints
		if in.Customer.RewardPoints < limit {
			limit = in.Customer.RewardPoints
		}
		if in.PointsToRedeem > limit {
			return Quote{}, ErrPointsExceedLimit
		}
	}

	discountFromPoints := Money(in.PointsToRedeem * 100)

	var welcomePct int64
	if in.Customer != nil && in.PriorTransactions == 0 {
		welcomePct = WelcomePercent
	}
	discountFromPercent := subtotal * Money(welcomePct) / 100

	totalDiscount := discountFromPoints + discountFromPercent
	total := subtotal - totalDiscount
	if total < 0 {
		return Quote{}, ErrNegativeTotal
	}

	rewardPct := in.RewardPercent
	if rewardPct <= 0 {
		rewardPct = DefaultRewardPercent
	}
	rewards := total * Money(rewardPct) / 100

	return Quote{
		Subtotal:            subtotal,
		MaxRedeemablePoints: maxPoints,
		PointsRedeemed:      in.PointsToRedeem,
		DiscountFromPoints:  discountFromPoints,
		WelcomePercent:      welcomePct,
		DiscountFromPercent: discountFromPercent,
		TotalDiscount:       totalDiscount,
		Total:               total,
		Rewards:             rewards,
		RewardPercent:       rewardPct,
	}, nil
}

// Flatten floors the quote's amounts to the whole-rupee values persisted on a
// transaction. PointsEarned is floor(rewards).
func (q Quote) Flatten() Amounts {
	return Amounts{
		TotalBeforeDiscount: q.Subtotal.FloorRupees(),
		DiscountFromPoints:  q.DiscountFromPoints.FloorRupees(),
		DiscountFromPercent: q.DiscountFromPercent.FloorRupees(),
		TotalDiscount:       q.TotalDiscount.FloorRupees(),
		Total:               q.Total.FloorRupees(),
		PointsRedeemed:      q.PointsRedeemed,
		PointsEarned:        q.Rewards.FloorRupees(),
	}
}

// AdjustQuantity applies a +1/-1 style delta to an item, clamping the result
// at a minimum quantity of 1. Removal is a separate explicit operation.
func AdjustQuantity(item Item, delta int) Item {
	q := item.Quantity + delta
	if q < 1 {
		q = 1
	}
	item.Quantity = q
	return item
}
