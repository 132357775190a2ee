package usecase

import "time"

const (
	// DefaultTabsPageSize is used when a list request has no limit.
	DefaultTabsPageSize = 20

	// MaxTabsPageSize caps list requests.
	MaxTabsPageSize = 100

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// Operation names reported to MetricsRecorder.TabMutated.
const (
	OperationCreateTab     = "create_tab"
	OperationDeleteTab     = "delete_tab"
	OperationAddUser       = "add_user"
	OperationRemoveUser    = "remove_user"
	OperationAddExpense    = "add_expense"
	OperationRemoveExpense = "remove_expense"
)
