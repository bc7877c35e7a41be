package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/services"
	"github.com/SscSPs/disbursement_ledger/internal/repositories/memory"
)

type MockCodeNotifier struct {
	mock.Mock
}

func (m *MockCodeNotifier) NotifyCode(ctx context.Context, identifier, code string, expiresAt time.Time) error {
	args := m.Called(ctx, identifier, code, expiresAt)
	return args.Error(0)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestOTPService_IssueAndVerify(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	notifier := new(MockCodeNotifier)
	svc := services.NewOTPService(memory.NewOTPRepository(), 0,
		services.WithCodeNotifier(notifier),
		services.WithClock(clock.Now))

	var delivered string
	notifier.On("NotifyCode", ctx, "payer@example.com", mock.AnythingOfType("string"), clock.Now().Add(services.DefaultOTPTTL)).
		Run(func(args mock.Arguments) { delivered = args.String(2) }).
		Return(nil).Once()

	code, expiresAt, err := services.NewOTPService(memory.NewOTPRepository(), 0).Issue(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Empty(t, code)
	assert.True(t, expiresAt.IsZero())

	code, expiresAt, err = svc.Issue(ctx, " Payer@Example.com ")
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, code)
	assert.Equal(t, clock.Now().Add(10*time.Minute), expiresAt)
	assert.Equal(t, code, delivered)
	notifier.AssertExpectations(t)

	ok, err := svc.Verify(ctx, "payer@example.com", wrongCode(code))
	require.NoError(t, err)
	assert.False(t, ok, "wrong code")

	ok, err = svc.Verify(ctx, "payer@example.com", code)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify(ctx, "payer@example.com", code)
	require.NoError(t, err)
	assert.False(t, ok, "a code verifies once")
}

func TestOTPService_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc := services.NewOTPService(memory.NewOTPRepository(), 5*time.Minute, services.WithClock(clock.Now))

	code, _, err := svc.Issue(ctx, "payer@example.com")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	ok, err := svc.Verify(ctx, "payer@example.com", code)
	require.NoError(t, err)
	assert.False(t, ok, "code is dead at its expiry instant")
}

func TestOTPService_ReissueInvalidatesPrevious(t *testing.T) {
	ctx := context.Background()
	svc := services.NewOTPService(memory.NewOTPRepository(), time.Minute)

	first, _, err := svc.Issue(ctx, "payer@example.com")
	require.NoError(t, err)
	second, _, err := svc.Issue(ctx, "payer@example.com")
	require.NoError(t, err)

	if first != second {
		ok, err := svc.Verify(ctx, "payer@example.com", first)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	ok, err := svc.Verify(ctx, "payer@example.com", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPService_ConcurrentVerifyHasOneWinner(t *testing.T) {
	ctx := context.Background()
	svc := services.NewOTPService(memory.NewOTPRepository(), time.Minute)
	code, _, err := svc.Issue(ctx, "payer@example.com")
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan bool, callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Verify(ctx, "payer@example.com", code)
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestOTPService_NotifierFailureFailsIssue(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockCodeNotifier)
	notifier.On("NotifyCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()
	svc := services.NewOTPService(memory.NewOTPRepository(), time.Minute, services.WithCodeNotifier(notifier))

	code, _, err := svc.Issue(ctx, "payer@example.com")
	assert.ErrorIs(t, err, apperrors.ErrCodeDelivery)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, code)
	notifier.AssertExpectations(t)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}
