package shared

import (
	"fmt"
	"strings"
)

// StoreKey builds the durable key for a company aggregate, e.g.
// "stockledger:acme:ledger".
func StoreKey(prefix, companyID, aggregate string) string {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		return fmt.Sprintf("%s:%s", companyID, aggregate)
	}
	return fmt.Sprintf("%s:%s:%s", prefix, companyID, aggregate)
}
