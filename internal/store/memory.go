package store

import (
	"encoding/json"

	"github.com/kirana-labs/kiranapos/pkg/kv"
)

// MemoryStore holds all backend state in memory. Each collection is a
// thread-safe kv.Store; the shared Clock drives TTL checks and timestamps so
// tests can advance time deterministically.
type MemoryStore struct {
	Accounts     *kv.Store[Account]
	Shops        *kv.Store[Shop]
	Customers    *kv.Store[Customer]
	Products     *kv.Store[Product]
	Transactions *kv.Store[Transaction]
	Sessions     *kv.Store[Session]
	Clock        *kv.Clock
}

// New creates an empty MemoryStore.
func New() *MemoryStore {
	clock := kv.NewClock()
	return &MemoryStore{
		Accounts:     kv.New[Account]("acct", clock),
		Shops:        kv.New[Shop]("shop", clock),
		Customers:    kv.New[Customer]("cust", clock),
		Products:     kv.New[Product]("prod", clock),
		Transactions: kv.New[Transaction]("txn", clock),
		Sessions:     kv.New[Session]("sess", clock),
		Clock:        clock,
	}
}

// AccountByPhone finds the account whose phone number matches.
func (s *MemoryStore) AccountByPhone(phone string) (Account, bool) {
	matches := s.Accounts.Filter(func(_ string, a Account) bool {
		return a.PhoneNumber == phone
	})
	if len(matches) == 0 {
		return Account{}, false
	}
	return matches[0], true
}

// CustomerByPhone finds the loyalty customer with the given phone number.
func (s *MemoryStore) CustomerByPhone(phone string) (Customer, bool) {
	matches := s.Customers.Filter(func(_ string, c Customer) bool {
		return c.PhoneNumber == phone
	})
	if len(matches) == 0 {
		return Customer{}, false
	}
	return matches[0], true
}

// ShopByOwner finds the shop owned by the given account.
func (s *MemoryStore) ShopByOwner(accountID string) (Shop, bool) {
	matches := s.Shops.Filter(func(_ string, sh Shop) bool {
		return sh.OwnerID == accountID
	})
	if len(matches) == 0 {
		return Shop{}, false
	}
	return matches[0], true
}

// TransactionsByStore returns all transactions recorded at a store.
func (s *MemoryStore) TransactionsByStore(storeID string) []Transaction {
	return s.Transactions.Filter(func(_ string, t Transaction) bool {
		return t.StoreID == storeID
	})
}

// PriorTransactionCount counts a customer's transactions at a store. Zero
// qualifies the customer for the welcome discount there.
func (s *MemoryStore) PriorTransactionCount(customerID, storeID string) int {
	return len(s.Transactions.Filter(func(_ string, t Transaction) bool {
		return t.CustomerID == customerID && t.StoreID == storeID
	}))
}

// stateSnapshot is the JSON shape used by Snapshot/LoadState and seed files.
type stateSnapshot struct {
	Accounts     map[string]Account     `json:"accounts"`
	Shops        map[string]Shop        `json:"shops"`
	Customers    map[string]Customer    `json:"customers"`
	Products     map[string]Product     `json:"products"`
	Transactions map[string]Transaction `json:"transactions"`
	Sessions     map[string]Session     `json:"sessions"`
}

// Snapshot returns the full state as a JSON-serializable value.
func (s *MemoryStore) Snapshot() any {
	return stateSnapshot{
		Accounts:     s.Accounts.Snapshot(),
		Shops:        s.Shops.Snapshot(),
		Customers:    s.Customers.Snapshot(),
		Products:     s.Products.Snapshot(),
		Transactions: s.Transactions.Snapshot(),
		Sessions:     s.Sessions.Snapshot(),
	}
}

// LoadState replaces state from a JSON body. Absent sections are left as-is.
func (s *MemoryStore) LoadState(data []byte) error {
	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.Accounts != nil {
		s.Accounts.LoadSnapshot(snap.Accounts)
	}
	if snap.Shops != nil {
		s.Shops.LoadSnapshot(snap.Shops)
	}
	if snap.Customers != nil {
		s.Customers.LoadSnapshot(snap.Customers)
	}
	if snap.Products != nil {
		s.Products.LoadSnapshot(snap.Products)
	}
	if snap.Transactions != nil {
		s.Transactions.LoadSnapshot(snap.Transactions)
	}
	if snap.Sessions != nil {
		s.Sessions.LoadSnapshot(snap.Sessions)
	}
	return nil
}

// Reset clears all state.
func (s *MemoryStore) Reset() {
	s.Accounts.Reset()
	s.Shops.Reset()
	s.Customers.Reset()
	s.Products.Reset()
	s.Transactions.Reset()
	s.Sessions.Reset()
	s.Clock.Reset()
}
