package auth

import (
	"context"
	"net/http"

	"github.com/frahmantamala/rahat-dashboard/internal/backend"
	"github.com/frahmantamala/rahat-dashboard/internal/session"
	"github.com/frahmantamala/rahat-dashboard/internal/transport"
)

type ServiceAPI interface {
	SignIn(ctx context.Context, dto SignInDTO) (*backend.SignInResult, error)
	SignOut(ctx context.Context) ([]string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	SignInPath  string
	FlashCookie string
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, signInPath, flashCookie string) *Handler {
	if signInPath == "" {
		signInPath = session.DefaultSignInPath
	}
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
		SignInPath:  signInPath,
		FlashCookie: flashCookie,
	}
}

func relayCookies(w http.ResponseWriter, cookies []string) {
	for _, c := range cookies {
		w.Header().Add("Set-Cookie", c)
	}
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var dto SignInDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	res, err := h.Service.SignIn(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	relayCookies(w, res.SetCookie)
	h.WriteJSON(w, http.StatusOK, SignInResponse{Redirect: session.HomePath, User: res.Response.User})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	cookies, err := h.Service.SignOut(r.Context())
	if p := session.ProviderFromContext(r.Context()); p != nil {
		p.Clear()
	}
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	relayCookies(w, cookies)
	transport.SetFlash(w, h.FlashCookie, MessageSignedOut)
	h.WriteJSON(w, http.StatusOK, SignOutResponse{Redirect: h.SignInPath, Message: MessageSignedOut})
}

type sessionView struct {
	session.State
	AllowedPages []string `json:"allowedPages"`
}

// Session reports the viewer's settled session and the pages it may open.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	p := session.ProviderFromContext(r.Context())
	if p == nil {
		h.WriteJSON(w, http.StatusOK, sessionView{State: session.State{Fetched: true}, AllowedPages: []string{}})
		return
	}
	pages := p.AllowedPages()
	if pages == nil {
		pages = []string{}
	}
	h.WriteJSON(w, http.StatusOK, sessionView{State: p.State(), AllowedPages: pages})
}
