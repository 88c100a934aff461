package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/retainerkit/internal/model"
)

// ClientService はクライアント管理ハンドラーが必要とするサービスインターフェース。
type ClientService interface {
	List(ctx context.Context, ws *model.ActiveWorkspace) ([]*model.Client, error)
	Get(ctx context.Context, ws *model.ActiveWorkspace, id string) (*model.Client, error)
	Create(ctx context.Context, ws *model.ActiveWorkspace, name string) (*model.Client, error)
	Rename(ctx context.Context, ws *model.ActiveWorkspace, id, name string) (*model.Client, error)
	Delete(ctx context.Context, ws *model.ActiveWorkspace, id string) error
	ListMembers(ctx context.Context, ws *model.ActiveWorkspace, clientID string) ([]*model.ClientMember, error)
	AddMember(ctx context.Context, ws *model.ActiveWorkspace, clientID, email string, role model.ClientRole) (*model.ClientMember, error)
	RemoveMember(ctx context.Context, ws *model.ActiveWorkspace, clientID, userID string) error
}

// ClientHandler はクライアントとクライアントメンバーのHTTPハンドラー。
type ClientHandler struct {
	service ClientService
}

// NewClientHandler はClientHandlerを生成する。
func NewClientHandler(service ClientService) *ClientHandler {
	return &ClientHandler{service: service}
}

type clientNameRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	ClientID   string           `json:"clientId"`
	Email      string           `json:"email"`
	ClientRole model.ClientRole `json:"clientRole" validate:"omitempty,oneof=client_admin client_user"`
}

type removeMemberRequest struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

// List はクライアント一覧を返す。
// GET /api/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	clients, err := h.service.List(r.Context(), ws)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clients": mapSlice(clients, toClientResponse)})
}

// Create はクライアントを作成する。
// POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req clientNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	client, err := h.service.Create(r.Context(), ws, req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"client": toClientResponse(client)})
}

// Get はクライアントを1件返す。
// GET /api/clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	client, err := h.service.Get(r.Context(), ws, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"client": toClientResponse(client)})
}

// Rename はクライアント名を変更する。
// PATCH /api/clients/{id}
func (h *ClientHandler) Rename(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req clientNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	client, err := h.service.Rename(r.Context(), ws, chi.URLParam(r, "id"), req.Name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"client": toClientResponse(client)})
}

// Delete はクライアントを削除する。契約・請求書・メンバーも連鎖削除される。
// DELETE /api/clients/{id}
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), ws, id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: true, ID: id})
}

// ListMembers はクライアントのメンバー一覧を返す。
// GET /api/client-members?clientId=
func (h *ClientHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	members, err := h.service.ListMembers(r.Context(), ws, r.URL.Query().Get("clientId"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": mapSlice(members, toClientMemberResponse)})
}

// AddMember は登録済みユーザーをクライアントに追加する。既存メンバーの場合はロールを更新する。
// POST /api/client-members
func (h *ClientHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req addMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	member, err := h.service.AddMember(r.Context(), ws, req.ClientID, req.Email, req.ClientRole)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"member": toClientMemberResponse(member)})
}

// RemoveMember はクライアントからユーザーを外す。
// DELETE /api/client-members
func (h *ClientHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requestScope(w, r)
	if !ok {
		return
	}
	var req removeMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.service.RemoveMember(r.Context(), ws, req.ClientID, req.UserID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
