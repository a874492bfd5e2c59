package http

import (
	"net/http"

	"gastos/internal/auth"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		BadRequestError("Dados inválidos", CodeInvalidJSON).Write(w)
		return
	}

	session, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		ServiceErrorResponse(r, err, "register").Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(newSessionResponse(session)).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, maxBodyBytes, &req); err != nil {
		BadRequestError("Dados inválidos", CodeInvalidJSON).Write(w)
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		ServiceErrorResponse(r, err, "login").Write(w)
		return
	}
	NewJSONResponse().Data(newSessionResponse(session)).Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Me(r.Context(), userID(r))
	if err != nil {
		ServiceErrorResponse(r, err, "me").Write(w)
		return
	}
	NewJSONResponse().Data(map[string]any{"user": newUserResponse(u)}).Write(w)
}

func newSessionResponse(s auth.Session) sessionResponse {
	return sessionResponse{User: newUserResponse(s.User), Token: s.Token}
}
