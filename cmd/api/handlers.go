package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Sahil001001/BaatCheet-app/internal/auth"
	"github.com/Sahil001001/BaatCheet-app/internal/data"
)

const jwtCookieName = "jwt"

type signupRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type sendMessageRequest struct {
	Text  string `json:"text" validate:"required_without=Image"`
	Image string `json:"image" validate:"required_without=Text"`
}

// handleSignup creates an account and logs the new user in by setting the
// jwt cookie.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error("hash password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := s.users.CreateUser(r.Context(), req.Email, req.FullName, hashed)
	if err != nil {
		if errors.Is(err, data.ErrUserExists) {
			writeError(w, http.StatusBadRequest, "user already exists")
			return
		}
		s.log.Error("create user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !s.issueToken(w, user.ID.Hex()) {
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusCreated, user)
}

// handleLogin authenticates a user and sets the jwt cookie. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := s.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			writeError(w, http.StatusBadRequest, "invalid credentials")
			return
		}
		s.log.Error("login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}

	if !s.issueToken(w, user.ID.Hex()) {
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

// handleLogout clears the jwt cookie. The realtime logout event is separate:
// a client normally emits it on its websocket before calling this.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     jwtCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

// handleCheckAuth returns the authenticated user's profile.
func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	user, err := s.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.log.Error("check auth failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	user.Password = ""
	writeJSON(w, http.StatusOK, user)
}

// handleSidebarUsers lists everyone except the caller for the contact list.
func (s *Server) handleSidebarUsers(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	users, err := s.users.ListOthers(r.Context(), claims.UserID)
	if err != nil {
		s.log.Error("list users failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleGetMessages returns the conversation with the user in the path and,
// as a side effect, marks their messages to the caller as seen.
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	otherID := r.PathValue("id")

	messages, err := s.router.FetchConversation(r.Context(), claims.UserID, otherID)
	if err != nil {
		s.log.Error("fetch conversation failed", "other", otherID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if messages == nil {
		messages = []*data.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// handleSendMessage persists a message to the user in the path and fans it
// out; the persisted record is returned to the caller.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	receiverID := r.PathValue("id")

	var req sendMessageRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := s.router.Send(r.Context(), claims.UserID, receiverID, req.Text, req.Image)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "message needs text or an image")
		case errors.Is(err, data.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "receiver not found")
		default:
			s.log.Error("send failed", "receiver", receiverID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// handleDeleteMessage hard-deletes a message the caller participates in.
func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	messageID := r.PathValue("id")

	if err := s.router.Delete(r.Context(), claims.UserID, messageID); err != nil {
		switch {
		case errors.Is(err, data.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "message not found")
		case errors.Is(err, data.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "not authorized to delete this message")
		default:
			s.log.Error("delete failed", "message", messageID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "message deleted successfully"})
}

// handleDebugOnlineUsers exposes the presence registry for debugging.
func (s *Server) handleDebugOnlineUsers(w http.ResponseWriter, r *http.Request) {
	type userSockets struct {
		UserID      string `json:"userId"`
		SocketCount int    `json:"socketCount"`
	}

	counts := s.hub.ConnectionCounts()
	sockets := make([]userSockets, 0, len(counts))
	for _, id := range s.hub.Snapshot() {
		sockets = append(sockets, userSockets{UserID: id, SocketCount: counts[id]})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"onlineUsers": s.hub.Snapshot(),
		"userSockets": sockets,
	})
}

// issueToken signs a JWT for the user and sets it as an http-only cookie.
func (s *Server) issueToken(w http.ResponseWriter, userID string) bool {
	token, expiresAt, err := s.auth.GenerateToken(userID)
	if err != nil {
		s.log.Error("generate token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     jwtCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
