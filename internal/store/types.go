// Package store defines the POS backend's domain state types and the
// in-memory store that holds them.
package store

// User roles.
const (
	RoleShopkeeper = "Shopkeeper"
	RoleCustomer   = "Customer"
)

// Account is a login identity. The username is the phone number.
type Account struct {
	ID           string `json:"id"`
	UserType     string `json:"userType"` // Shopkeeper or Customer
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PhoneNumber  string `json:"phoneNumber"`
	PasswordHash string `json:"password_hash"` // bcrypt, never exposed via API
	CreatedAt    string `json:"createdAt"`
}

// Shop is a shopkeeper's place of business. It scopes customers, products,
// and transactions, and carries the store-configured reward rate.
type Shop struct {
	ID            string `json:"id"`
	OwnerID       string `json:"ownerId"`
	Name          string `json:"name"`
	Pincode       string `json:"pincode"`
	State         string `json:"state"`
	RewardPercent int64  `json:"rewardPercentage"`
	CreatedAt     string `json:"createdAt"`
}

// Customer is a loyalty program member. RewardPoints is the redeemable
// balance in whole points; it never goes negative.
type Customer struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	PhoneNumber  string `json:"phoneNumber"`
	RewardPoints int64  `json:"rewardPoints"`
	CreatedAt    string `json:"createdAt"`
}

// Product is a store's catalog entry. Price is in paise.
type Product struct {
	ID        string `json:"id"`
	StoreID   string `json:"store"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price"`
	CreatedAt string `json:"createdAt"`
}

// SaleItem is one transaction line. UnitPrice (paise) is captured at
// selection time, so later catalog price edits do not rewrite history.
type SaleItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"price"`
}

// Transaction is a persisted sale. The amount fields are whole rupees,
// floored at submission per the checkout contract.
type Transaction struct {
	ID                  string     `json:"id"`
	CustomerID          string     `json:"customerId"`
	StoreID             string     `json:"storeId"`
	Items               []SaleItem `json:"items"`
	TotalBeforeDiscount int64      `json:"totalAmountBeforeDiscount"`
	DiscountFromPoints  int64      `json:"discountFromPoints"`
	DiscountFromPercent int64      `json:"discountFromPercentage"`
	TotalDiscount       int64      `json:"totalDiscount"`
	TotalAmount         int64      `json:"totalAmount"`
	PointsRedeemed      int64      `json:"pointsRedeemed"`
	PointsEarned        int64      `json:"pointsEarned"`
	PaymentMethod       string     `json:"paymentMethod"`
	Date                string     `json:"date"`
}

// Session is an issued bearer token. Tokens are opaque strings; no claims or
// signatures are involved.
type Session struct {
	Token     string `json:"token"`
	AccountID string `json:"accountId"`
	CreatedAt string `json:"createdAt"`
}
