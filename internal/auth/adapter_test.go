package auth

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/retainerkit/internal/model"
)

type mockUserRepo struct {
	createFn        func(ctx context.Context, user *model.User) (*model.User, error)
	findByIDFn      func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn   func(ctx context.Context, email string) (*model.User, error)
	findByAccountFn func(ctx context.Context, provider, id string) (*model.User, error)
	updateFn        func(ctx context.Context, patch *model.UserPatch) (*model.User, error)
	deleteFn        func(ctx context.Context, id string) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return user, nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByAccount(ctx context.Context, provider, id string) (*model.User, error) {
	if m.findByAccountFn != nil {
		return m.findByAccountFn(ctx, provider, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Update(ctx context.Context, patch *model.UserPatch) (*model.User, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, patch)
	}
	return nil, nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockAccountRepo struct {
	linked   []*model.Account
	unlinked []string
}

func (m *mockAccountRepo) Link(_ context.Context, account *model.Account) error {
	m.linked = append(m.linked, account)
	return nil
}

func (m *mockAccountRepo) Unlink(_ context.Context, provider, id string) error {
	m.unlinked = append(m.unlinked, provider+":"+id)
	return nil
}

type mockSessionRepo struct {
	findWithUserFn func(ctx context.Context, token string) (*model.SessionAndUser, error)
	deleted        []string
}

func (m *mockSessionRepo) Create(_ context.Context, s *model.Session) (*model.Session, error) {
	return s, nil
}

func (m *mockSessionRepo) FindWithUser(ctx context.Context, token string) (*model.SessionAndUser, error) {
	if m.findWithUserFn != nil {
		return m.findWithUserFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) Update(_ context.Context, _ *model.SessionPatch) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) Delete(_ context.Context, token string) error {
	m.deleted = append(m.deleted, token)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type mockTokenRepo struct {
	useFn func(ctx context.Context, identifier, token string) (*model.VerificationToken, error)
}

func (m *mockTokenRepo) Create(_ context.Context, t *model.VerificationToken) (*model.VerificationToken, error) {
	return t, nil
}

func (m *mockTokenRepo) Use(ctx context.Context, identifier, token string) (*model.VerificationToken, error) {
	if m.useFn != nil {
		return m.useFn(ctx, identifier, token)
	}
	return nil, nil
}

func (m *mockTokenRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestRepositoryAdapter_UpdateUser(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		a := NewRepositoryAdapter(&mockUserRepo{}, &mockAccountRepo{}, &mockSessionRepo{}, &mockTokenRepo{})
		_, err := a.UpdateUser(context.Background(), &model.UserPatch{})
		assertAPIErrorCode(t, err, model.ErrCodeValidation)

		_, err = a.UpdateUser(context.Background(), nil)
		assertAPIErrorCode(t, err, model.ErrCodeValidation)
	})

	t.Run("unknown user", func(t *testing.T) {
		a := NewRepositoryAdapter(&mockUserRepo{}, &mockAccountRepo{}, &mockSessionRepo{}, &mockTokenRepo{})
		_, err := a.UpdateUser(context.Background(), &model.UserPatch{ID: "nope"})
		assertAPIErrorCode(t, err, model.ErrCodeNotFound)
	})

	t.Run("updated", func(t *testing.T) {
		name := "Renamed"
		users := &mockUserRepo{
			updateFn: func(_ context.Context, p *model.UserPatch) (*model.User, error) {
				return &model.User{ID: p.ID, Name: p.Name}, nil
			},
		}
		a := NewRepositoryAdapter(users, &mockAccountRepo{}, &mockSessionRepo{}, &mockTokenRepo{})
		u, err := a.UpdateUser(context.Background(), &model.UserPatch{ID: "u1", Name: &name})
		if err != nil {
			t.Fatalf("UpdateUser() error = %v", err)
		}
		if u.DisplayName() != "Renamed" {
			t.Errorf("name = %q", u.DisplayName())
		}
	})
}

func TestRepositoryAdapter_LinkAccount_RequiresKeys(t *testing.T) {
	accounts := &mockAccountRepo{}
	a := NewRepositoryAdapter(&mockUserRepo{}, accounts, &mockSessionRepo{}, &mockTokenRepo{})

	if err := a.LinkAccount(context.Background(), &model.Account{Provider: "google"}); err == nil {
		t.Error("expected error for incomplete account")
	}
	if len(accounts.linked) != 0 {
		t.Fatalf("incomplete account must not reach the repository")
	}

	ok := &model.Account{UserID: "u1", Provider: "google", ProviderAccountID: "sub"}
	if err := a.LinkAccount(context.Background(), ok); err != nil {
		t.Fatalf("LinkAccount() error = %v", err)
	}
	if err := a.UnlinkAccount(context.Background(), "google", "sub"); err != nil {
		t.Fatalf("UnlinkAccount() error = %v", err)
	}
	if len(accounts.linked) != 1 || len(accounts.unlinked) != 1 || accounts.unlinked[0] != "google:sub" {
		t.Errorf("linked = %v, unlinked = %v", accounts.linked, accounts.unlinked)
	}
}

func TestRepositoryAdapter_Delegates(t *testing.T) {
	users := &mockUserRepo{
		findByAccountFn: func(_ context.Context, provider, id string) (*model.User, error) {
			return &model.User{ID: provider + "-" + id}, nil
		},
	}
	sessions := &mockSessionRepo{
		findWithUserFn: func(_ context.Context, token string) (*model.SessionAndUser, error) {
			return &model.SessionAndUser{Session: model.Session{SessionToken: token}}, nil
		},
	}
	tokens := &mockTokenRepo{
		useFn: func(_ context.Context, identifier, token string) (*model.VerificationToken, error) {
			return &model.VerificationToken{Identifier: identifier, Token: token}, nil
		},
	}
	a := NewRepositoryAdapter(users, &mockAccountRepo{}, sessions, tokens)
	ctx := context.Background()

	u, err := a.GetUserByAccount(ctx, "github", "42")
	if err != nil || u.ID != "github-42" {
		t.Errorf("GetUserByAccount() = %v, %v", u, err)
	}

	su, err := a.GetSessionAndUser(ctx, "tok")
	if err != nil || su.Session.SessionToken != "tok" {
		t.Errorf("GetSessionAndUser() = %v, %v", su, err)
	}

	if err := a.DeleteSession(ctx, "tok"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if len(sessions.deleted) != 1 {
		t.Errorf("deleted = %v", sessions.deleted)
	}

	vt, err := a.UseVerificationToken(ctx, "a@example.com", "t1")
	if err != nil || vt.Token != "t1" {
		t.Errorf("UseVerificationToken() = %v, %v", vt, err)
	}
}
