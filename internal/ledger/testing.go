package ledger

// CorruptBalance force-sets the stored balance of an in-memory account without
// touching its history. Test helper for exercising reconciliation mismatches.
func CorruptBalance(s Store, accountID string, balance int64) {
	mem, ok := s.(*memoryStore)
	if !ok {
		return
	}
	mem.mu.RLock()
	acct, exists := mem.accounts[accountID]
	mem.mu.RUnlock()
	if !exists {
		return
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	acct.balance = balance
}
