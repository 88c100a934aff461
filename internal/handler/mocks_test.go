package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/retainerkit/internal/auth"
	"github.com/hitoshi/retainerkit/internal/billing"
	"github.com/hitoshi/retainerkit/internal/client"
	"github.com/hitoshi/retainerkit/internal/contract"
	"github.com/hitoshi/retainerkit/internal/middleware"
	"github.com/hitoshi/retainerkit/internal/model"
	"github.com/hitoshi/retainerkit/internal/timeentry"
)

const (
	testUserID     = "11111111-1111-4111-8111-111111111111"
	testClientID   = "22222222-2222-4222-8222-222222222222"
	testContractID = "33333333-3333-4333-8333-333333333333"
	testInvoiceID  = "44444444-4444-4444-8444-444444444444"
)

var (
	ownerWS  = &model.ActiveWorkspace{ID: "ws-1", Name: "Acme Studio", Role: model.WorkspaceRoleOwner}
	clientWS = &model.ActiveWorkspace{ID: "ws-1", Name: "Acme Studio", Role: model.WorkspaceRoleClient}
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn       func(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	loginFn          func(ctx context.Context, email, password string) (*model.Session, error)
	getLoginURLFn    func(provider, state string) (string, error)
	handleCallbackFn func(ctx context.Context, provider, code string) (*model.Session, error)
	logoutFn         func(ctx context.Context, token string) error
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return &model.User{ID: testUserID, Email: in.Email}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) GetLoginURL(provider, state string) (string, error) {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(provider, state)
	}
	return "https://idp.example.com/authorize?state=" + state, nil
}

func (m *mockAuthService) HandleCallback(ctx context.Context, provider, code string) (*model.Session, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, provider, code)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

type mockClientService struct {
	listFn         func(ctx context.Context, ws *model.ActiveWorkspace) ([]*model.Client, error)
	getFn          func(ctx context.Context, ws *model.ActiveWorkspace, id string) (*model.Client, error)
	createFn       func(ctx context.Context, ws *model.ActiveWorkspace, name string) (*model.Client, error)
	renameFn       func(ctx context.Context, ws *model.ActiveWorkspace, id, name string) (*model.Client, error)
	deleteFn       func(ctx context.Context, ws *model.ActiveWorkspace, id string) error
	listMembersFn  func(ctx context.Context, ws *model.ActiveWorkspace, clientID string) ([]*model.ClientMember, error)
	addMemberFn    func(ctx context.Context, ws *model.ActiveWorkspace, clientID, email string, role model.ClientRole) (*model.ClientMember, error)
	removeMemberFn func(ctx context.Context, ws *model.ActiveWorkspace, clientID, userID string) error
}

func (m *mockClientService) List(ctx context.Context, ws *model.ActiveWorkspace) ([]*model.Client, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ws)
	}
	return nil, nil
}

func (m *mockClientService) Get(ctx context.Context, ws *model.ActiveWorkspace, id string) (*model.Client, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ws, id)
	}
	return nil, model.NewNotFoundError("Client")
}

func (m *mockClientService) Create(ctx context.Context, ws *model.ActiveWorkspace, name string) (*model.Client, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ws, name)
	}
	return &model.Client{ID: testClientID, WorkspaceID: ws.ID, Name: name}, nil
}

func (m *mockClientService) Rename(ctx context.Context, ws *model.ActiveWorkspace, id, name string) (*model.Client, error) {
	if m.renameFn != nil {
		return m.renameFn(ctx, ws, id, name)
	}
	return &model.Client{ID: id, WorkspaceID: ws.ID, Name: name}, nil
}

func (m *mockClientService) Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ws, id)
	}
	return nil
}

func (m *mockClientService) ListMembers(ctx context.Context, ws *model.ActiveWorkspace, clientID string) ([]*model.ClientMember, error) {
	if m.listMembersFn != nil {
		return m.listMembersFn(ctx, ws, clientID)
	}
	return nil, nil
}

func (m *mockClientService) AddMember(ctx context.Context, ws *model.ActiveWorkspace, clientID, email string, role model.ClientRole) (*model.ClientMember, error) {
	if m.addMemberFn != nil {
		return m.addMemberFn(ctx, ws, clientID, email, role)
	}
	return &model.ClientMember{ClientID: clientID, UserID: testUserID, Email: email, Role: role}, nil
}

func (m *mockClientService) RemoveMember(ctx context.Context, ws *model.ActiveWorkspace, clientID, userID string) error {
	if m.removeMemberFn != nil {
		return m.removeMemberFn(ctx, ws, clientID, userID)
	}
	return nil
}

type mockContractService struct {
	listFn   func(ctx context.Context, ws *model.ActiveWorkspace, clientID string) ([]*model.Contract, error)
	createFn func(ctx context.Context, ws *model.ActiveWorkspace, in contract.CreateInput) (*model.Contract, error)
	updateFn func(ctx context.Context, ws *model.ActiveWorkspace, id string, in contract.UpdateInput) (*model.Contract, error)
	deleteFn func(ctx context.Context, ws *model.ActiveWorkspace, id string) error
}

func (m *mockContractService) List(ctx context.Context, ws *model.ActiveWorkspace, clientID string) ([]*model.Contract, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ws, clientID)
	}
	return nil, nil
}

func (m *mockContractService) Create(ctx context.Context, ws *model.ActiveWorkspace, in contract.CreateInput) (*model.Contract, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ws, in)
	}
	return &model.Contract{ID: testContractID, ClientID: in.ClientID, Title: in.Title}, nil
}

func (m *mockContractService) Update(ctx context.Context, ws *model.ActiveWorkspace, id string, in contract.UpdateInput) (*model.Contract, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ws, id, in)
	}
	return &model.Contract{ID: id}, nil
}

func (m *mockContractService) Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ws, id)
	}
	return nil
}

type mockTimeEntryService struct {
	listFn   func(ctx context.Context, ws *model.ActiveWorkspace, contractID string) ([]*model.TimeEntry, error)
	createFn func(ctx context.Context, ws *model.ActiveWorkspace, userID string, in timeentry.CreateInput) (*model.TimeEntry, error)
	deleteFn func(ctx context.Context, ws *model.ActiveWorkspace, id string) error
}

func (m *mockTimeEntryService) List(ctx context.Context, ws *model.ActiveWorkspace, contractID string) ([]*model.TimeEntry, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ws, contractID)
	}
	return nil, nil
}

func (m *mockTimeEntryService) Create(ctx context.Context, ws *model.ActiveWorkspace, userID string, in timeentry.CreateInput) (*model.TimeEntry, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ws, userID, in)
	}
	return &model.TimeEntry{ID: "entry-1", ContractID: in.ContractID, WorkDate: in.WorkDate, Minutes: in.Minutes, CreatedByUserID: userID}, nil
}

func (m *mockTimeEntryService) Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ws, id)
	}
	return nil
}

type mockInvoiceService struct {
	listFn   func(ctx context.Context, ws *model.ActiveWorkspace, contractID string) ([]*model.Invoice, error)
	createFn func(ctx context.Context, ws *model.ActiveWorkspace, userID string, in billing.CreateInvoiceInput) (*model.Invoice, error)
	updateFn func(ctx context.Context, ws *model.ActiveWorkspace, id string, in billing.UpdateInvoiceInput) (*model.Invoice, error)
	deleteFn func(ctx context.Context, ws *model.ActiveWorkspace, id string) error
}

func (m *mockInvoiceService) List(ctx context.Context, ws *model.ActiveWorkspace, contractID string) ([]*model.Invoice, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ws, contractID)
	}
	return nil, nil
}

func (m *mockInvoiceService) Create(ctx context.Context, ws *model.ActiveWorkspace, userID string, in billing.CreateInvoiceInput) (*model.Invoice, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ws, userID, in)
	}
	return &model.Invoice{ID: testInvoiceID, ContractID: in.ContractID, PeriodStart: in.PeriodStart, PeriodEnd: in.PeriodEnd}, nil
}

func (m *mockInvoiceService) Update(ctx context.Context, ws *model.ActiveWorkspace, id string, in billing.UpdateInvoiceInput) (*model.Invoice, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ws, id, in)
	}
	return &model.Invoice{ID: id}, nil
}

func (m *mockInvoiceService) Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ws, id)
	}
	return nil
}

type mockInvoiceGenerator struct {
	generateFn func(ctx context.Context, ws *model.ActiveWorkspace, userID string, req billing.GenerateRequest) (*billing.GenerateResult, error)
}

func (m *mockInvoiceGenerator) Generate(ctx context.Context, ws *model.ActiveWorkspace, userID string, req billing.GenerateRequest) (*billing.GenerateResult, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, ws, userID, req)
	}
	return nil, nil
}

type mockPortalService struct {
	overviewFn func(ctx context.Context, ws *model.ActiveWorkspace, userID string) (*client.Overview, error)
	invoicesFn func(ctx context.Context, ws *model.ActiveWorkspace, userID string) (*model.ActiveClient, []*model.ClientInvoice, error)
}

func (m *mockPortalService) Overview(ctx context.Context, ws *model.ActiveWorkspace, userID string) (*client.Overview, error) {
	if m.overviewFn != nil {
		return m.overviewFn(ctx, ws, userID)
	}
	return nil, model.NewClientNotAssignedError()
}

func (m *mockPortalService) Invoices(ctx context.Context, ws *model.ActiveWorkspace, userID string) (*model.ActiveClient, []*model.ClientInvoice, error) {
	if m.invoicesFn != nil {
		return m.invoicesFn(ctx, ws, userID)
	}
	return nil, nil, model.NewClientNotAssignedError()
}

// compile-time interface check
var (
	_ AuthService      = (*mockAuthService)(nil)
	_ ClientService    = (*mockClientService)(nil)
	_ ContractService  = (*mockContractService)(nil)
	_ TimeEntryService = (*mockTimeEntryService)(nil)
	_ InvoiceService   = (*mockInvoiceService)(nil)
	_ InvoiceGenerator = (*mockInvoiceGenerator)(nil)
	_ PortalService    = (*mockPortalService)(nil)
)

type mockAccountService struct {
	withdrawFn func(ctx context.Context, userID string) error
}

func (m *mockAccountService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

var _ AccountService = (*mockAccountService)(nil)

// --- テストヘルパー ---

// newScopedRequest はセッションとワークスペースが解決済みのリクエストを作る。
func newScopedRequest(method, target string, body any, ws *model.ActiveWorkspace) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			json.NewEncoder(&buf).Encode(body)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	ctx := middleware.ContextWithUserID(r.Context(), testUserID)
	ctx = middleware.ContextWithUser(ctx, &model.User{ID: testUserID, Email: "owner@example.com"})
	if ws != nil {
		ctx = middleware.ContextWithWorkspace(ctx, ws)
	}
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeBody はレスポンスボディをデコードするヘルパー。
func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
	return v
}

// assertErrorCode はステータスコードとエラーコードを検証するヘルパー。
func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}
	body := decodeBody[middleware.ErrorResponseBody](t, w)
	if body.Code != wantCode {
		t.Errorf("code = %q, want %q", body.Code, wantCode)
	}
}
