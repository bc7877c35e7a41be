package services

import (
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/events"
	"github.com/SscSPs/disbursement_ledger/internal/core/ports/providers"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/disbursement_ledger/internal/core/ports/services"
	"github.com/SscSPs/disbursement_ledger/internal/platform/metrics"
)

// ContainerDeps are the collaborators shared by every service of one mode.
type ContainerDeps struct {
	Mode                    domain.Mode
	Repos                   portsrepo.RepositoryProvider
	Resolver                providers.Resolver
	Publisher               events.Publisher
	Notifier                portssvc.CodeNotifier
	Metrics                 *metrics.Metrics
	OTPTTL                  time.Duration
	DefaultExpenseAccountID string
	Concurrency             int
	PayoutTimeout           time.Duration
	StaleAfter              time.Duration
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(deps ContainerDeps) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.User = NewUserService(deps.Repos.UserRepo)
	container.Account = NewAccountService(
		deps.Repos.AccountRepo,
		deps.Repos.UserRepo,
		WithProviderResolver(deps.Resolver),
	)
	container.Ledger = NewLedgerService(
		deps.Repos,
		WithLedgerMetrics(deps.Metrics),
	)
	container.OTP = NewOTPService(
		deps.Repos.OTPRepo,
		deps.OTPTTL,
		WithCodeNotifier(deps.Notifier),
	)
	container.Disbursement = NewDisbursementService(
		DisbursementConfig{
			Mode:                    deps.Mode,
			DefaultExpenseAccountID: deps.DefaultExpenseAccountID,
			Concurrency:             deps.Concurrency,
			PayoutTimeout:           deps.PayoutTimeout,
			StaleAfter:              deps.StaleAfter,
		},
		deps.Repos,
		container.Ledger,
		container.OTP,
		deps.Resolver,
		WithEventPublisher(deps.Publisher),
		WithDisbursementMetrics(deps.Metrics),
	)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.UserSvcFacade         = (*userService)(nil)
	_ portssvc.AccountSvcFacade      = (*accountService)(nil)
	_ portssvc.LedgerSvcFacade       = (*ledgerService)(nil)
	_ portssvc.OTPSvcFacade          = (*otpService)(nil)
	_ portssvc.DisbursementSvcFacade = (*disbursementService)(nil)
)
