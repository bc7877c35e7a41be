package services

// ServiceContainer holds instances of all the application services for one mode.
// Handlers pick the container matching the request's mode.
type ServiceContainer struct {
	User         UserSvcFacade
	Account      AccountSvcFacade
	Ledger       LedgerSvcFacade
	OTP          OTPSvcFacade
	Disbursement DisbursementSvcFacade
}
