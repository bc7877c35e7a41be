package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// One provider exists per mode; each points at its own books.
type RepositoryProvider struct {
	AccountRepo AccountRepositoryFacade
	LedgerRepo  LedgerRepositoryFacade
	ExpenseRepo ExpenseRepositoryFacade
	UserRepo    UserRepositoryFacade
	OTPRepo     OTPRepository
	TxManager   TransactionManager
}
