package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domain "accounts/backend/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User // keyed by email
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return domain.ErrEmailExists
	}
	clone := *user
	f.users[user.Email] = &clone
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, user := range f.users {
		if user.ID == id {
			delete(f.users, email)
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (f *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

type fakeTokenManager struct {
	issued int
	err    error
	verify map[string]Claims // token -> claims
	fail   map[string]error  // token -> verification error
}

func newFakeTokenManager() *fakeTokenManager {
	return &fakeTokenManager{
		verify: make(map[string]Claims),
		fail:   make(map[string]error),
	}
}

func (f *fakeTokenManager) IssuePair(userID, email string) (TokenPair, error) {
	if f.err != nil {
		return TokenPair{}, f.err
	}
	f.issued++
	access := fmt.Sprintf("access-%d", f.issued)
	refresh := fmt.Sprintf("refresh-%d", f.issued)
	f.verify[access] = Claims{UserID: userID, Email: email}
	f.verify[refresh] = Claims{UserID: userID, Email: email}
	now := time.Now()
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(720 * time.Hour),
	}, nil
}

func (f *fakeTokenManager) Verify(token string, kind TokenKind) (Claims, error) {
	if err, ok := f.fail[token]; ok {
		return Claims{}, err
	}
	claims, ok := f.verify[token]
	if !ok {
		return Claims{}, domain.ErrTokenInvalid
	}
	return claims, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(plaintext string) (string, error) {
	return "hashed:" + plaintext, nil
}

func (fakeHasher) Verify(plaintext, hash string) bool {
	return hash == "hashed:"+plaintext
}

func newTestService() (*Service, *fakeUserRepo, *fakeTokenManager) {
	repo := newFakeUserRepo()
	tokens := newFakeTokenManager()
	svc := NewService(repo, tokens, fakeHasher{})
	svc.nowFunc = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo, tokens
}

// --- Register ---

func TestRegister_NormalizesEmail(t *testing.T) {
	svc, repo, _ := newTestService()

	user, err := svc.Register(context.Background(), "  A@Test.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@test.com", user.Email)
	assert.NotEmpty(t, user.ID)
	assert.Empty(t, user.PasswordHash, "hash must never leave the service")

	stored, err := repo.GetByEmail(context.Background(), "a@test.com")
	require.NoError(t, err)
	assert.Equal(t, "hashed:secret1", stored.PasswordHash)
}

func TestRegister_CollectsAllFieldErrors(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), "not-an-email", "abc")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "email", verr.Fields[0].Field)
	assert.Equal(t, "password", verr.Fields[1].Field)
}

func TestRegister_EmptyInput(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), "", "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)
}

func TestRegister_PasswordLengthBounds(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), "ok@test.com", "12345")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = svc.Register(context.Background(), "ok2@test.com", "123456")
	assert.NoError(t, err)

	long := make([]byte, 129)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.Register(context.Background(), "ok3@test.com", string(long))
	require.ErrorAs(t, err, &verr)
}

func TestRegister_DuplicateEmailIsValidationError(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), "dup@test.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "DUP@test.com", "secret2")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr, "duplicate must surface as a validation error, not a server error")
	assert.ErrorIs(t, err, domain.ErrEmailExists)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "email", verr.Fields[0].Field)
}

func TestRegister_DoesNotIssueTokens(t *testing.T) {
	svc, _, tokens := newTestService()

	_, err := svc.Register(context.Background(), "fresh@test.com", "secret1")
	require.NoError(t, err)
	assert.Zero(t, tokens.issued, "registration must not auto-authenticate")
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	svc, _, _ := newTestService()

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "race@test.com", "secret1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrEmailExists):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	svc, _, _ := newTestService()

	registered, err := svc.Register(context.Background(), "user@test.com", "secret1")
	require.NoError(t, err)

	user, pair, err := svc.Login(context.Background(), domain.Credentials{
		Email:    "User@Test.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "user@test.com", user.Email)
	assert.Empty(t, user.PasswordHash)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), "known@test.com", "secret1")
	require.NoError(t, err)

	_, _, errUnknown := svc.Login(context.Background(), domain.Credentials{
		Email:    "nobody@test.com",
		Password: "secret1",
	})
	_, _, errWrongPw := svc.Login(context.Background(), domain.Credentials{
		Email:    "known@test.com",
		Password: "wrong",
	})

	require.ErrorIs(t, errUnknown, domain.ErrInvalidCredentials)
	require.ErrorIs(t, errWrongPw, domain.ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestLogin_ValidationFailures(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Login(context.Background(), domain.Credentials{})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)
}

// --- Verify / Refresh ---

func TestVerifyAccess_ExpiredPassesThroughDistinctly(t *testing.T) {
	svc, _, tokens := newTestService()
	tokens.fail["stale"] = domain.ErrTokenExpired

	_, err := svc.VerifyAccess(context.Background(), "stale")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.NotErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifyAccess_DeletedUserRevokesToken(t *testing.T) {
	svc, repo, _ := newTestService()

	user, err := svc.Register(context.Background(), "gone@test.com", "secret1")
	require.NoError(t, err)
	_, pair, err := svc.Login(context.Background(), domain.Credentials{Email: "gone@test.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(context.Background(), user.ID))

	_, err = svc.VerifyAccess(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), "rotate@test.com", "secret1")
	require.NoError(t, err)
	_, pair, err := svc.Login(context.Background(), domain.Credentials{Email: "rotate@test.com", Password: "secret1"})
	require.NoError(t, err)

	user, next, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "rotate@test.com", user.Email)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The rotated access token verifies on its own.
	_, err = svc.VerifyAccess(context.Background(), next.AccessToken)
	assert.NoError(t, err)
}

func TestRefresh_FailuresPropagateUnchanged(t *testing.T) {
	svc, _, tokens := newTestService()
	tokens.fail["expired"] = domain.ErrTokenExpired

	_, _, err := svc.Refresh(context.Background(), "expired")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	_, _, err = svc.Refresh(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	svc, _, _ := newTestService()
	assert.NoError(t, svc.Logout())
}
