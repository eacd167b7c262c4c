// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ferrywire/ferrywire/internal/backend"
	"github.com/ferrywire/ferrywire/internal/domain"
	"github.com/ferrywire/ferrywire/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// envelope is the response shape of every control-plane endpoint: status 0
// means success, a non-zero status is the backend-reported result code.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type server struct {
	backend backend.Client
	ready   ReadinessChecker
	logger  *slog.Logger
	routes  []routeInfo
}

func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics.Init()
	version := valueOrDefault(deps.Version, "dev")
	commit := valueOrDefault(deps.Commit, "none")
	buildDate := valueOrDefault(deps.BuildDate, "unknown")

	s := &server{
		backend: deps.Backend,
		ready:   deps.Ready,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware())
	r.Use(requestLoggingMiddleware(logger))

	// ---------------- HEALTH / METRICS / VERSION ----------------

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"commit":     commit,
			"build_date": buildDate,
		})
	})

	// ---------------- SAMPLE CALLBACK RECEIVER ----------------

	s.route(r, http.MethodPost, "/msg_cb", "sample callback endpoint that logs the forwarded event", s.handleMsgCallback)

	// ---------------- BACKEND OPERATIONS ----------------

	r.Group(func(r chi.Router) {
		r.Use(s.requireRunning)

		s.route(r, http.MethodGet, "/login", "login status", s.handleIsLogin)
		s.route(r, http.MethodGet, "/wxid", "logged-in account wxid", s.handleSelfWxid)
		s.route(r, http.MethodGet, "/user-info", "logged-in account profile", s.handleUserInfo)
		s.route(r, http.MethodGet, "/msg-types", "message type map", s.handleMsgTypes)
		s.route(r, http.MethodGet, "/contacts", "full contact list", s.handleContacts)
		s.route(r, http.MethodGet, "/friends", "friend list", s.handleFriends)
		s.route(r, http.MethodGet, "/dbs", "backend databases", s.handleDBs)
		s.route(r, http.MethodGet, "/{db}/tables", "tables of a backend database", s.handleTables)
		s.route(r, http.MethodGet, "/pyq", "refresh moments feed", s.handleRefreshMoments)
		s.route(r, http.MethodGet, "/chatroom-member", "chatroom member list", s.handleChatroomMembers)
		s.route(r, http.MethodGet, "/alias-in-chatroom", "chatroom member alias", s.handleAliasInChatroom)

		s.route(r, http.MethodPost, "/text", "send text message", s.handleSendText)
		s.route(r, http.MethodPost, "/image", "send image message", s.handleSendImage)
		s.route(r, http.MethodPost, "/file", "send file message", s.handleSendFile)
		s.route(r, http.MethodPost, "/rich-text", "send rich-text card", s.handleSendRichText)
		s.route(r, http.MethodPost, "/pat", "pat a chatroom member", s.handleSendPat)
		s.route(r, http.MethodPost, "/sql", "query a backend database", s.handleQuerySQL)
		s.route(r, http.MethodPost, "/accept-friend", "accept a friend request", s.handleAcceptFriend)
		s.route(r, http.MethodPost, "/chatroom-member", "add chatroom members", s.handleAddChatroomMembers)
		s.route(r, http.MethodPost, "/invite-chatroom-member", "invite chatroom members", s.handleInviteChatroomMembers)
		s.route(r, http.MethodDelete, "/chatroom-member", "remove chatroom members", s.handleDelChatroomMembers)
		s.route(r, http.MethodPost, "/receive-transfer", "accept a transfer", s.handleReceiveTransfer)
		s.route(r, http.MethodPost, "/save-image", "download an image from a message", s.handleSaveImage)
		s.route(r, http.MethodPost, "/save-audio", "save a voice message", s.handleSaveAudio)
		s.route(r, http.MethodPost, "/ocr-result", "run OCR on a message image", s.handleOCRResult)
	})

	// ---------------- DOCS ----------------

	r.Get("/docs", s.handleDocs)
	r.Get("/docs/routes", s.handleDocsRoutes)

	return r
}

// route registers a handler and records it in the /docs catalog.
func (s *server) route(r chi.Router, method, path, summary string, h http.HandlerFunc) {
	r.Method(method, path, h)
	s.routes = append(s.routes, routeInfo{Method: method, Path: path, Summary: summary})
}

func (s *server) requireRunning(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.ready != nil && !s.ready.Running() {
			writeJSON(w, http.StatusServiceUnavailable, envelope{
				Status:  -1,
				Message: "backend not ready",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---------------- GET HANDLERS ----------------

func (s *server) handleIsLogin(w http.ResponseWriter, r *http.Request) {
	login, err := s.backend.IsLogin(r.Context())
	if err != nil {
		s.backendError(w, "is_login", err)
		return
	}
	s.ok(w, map[string]bool{"login": login})
}

func (s *server) handleSelfWxid(w http.ResponseWriter, r *http.Request) {
	wxid, err := s.backend.SelfWxid(r.Context())
	if err != nil {
		s.backendError(w, "self_wxid", err)
		return
	}
	s.ok(w, map[string]string{"wxid": wxid})
}

func (s *server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.backend.UserInfo(r.Context())
	if err != nil {
		s.backendError(w, "user_info", err)
		return
	}
	s.ok(w, map[string]backend.UserInfo{"ui": info})
}

func (s *server) handleMsgTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.backend.MsgTypes(r.Context())
	if err != nil {
		s.backendError(w, "msg_types", err)
		return
	}
	s.ok(w, map[string]map[int]string{"types": types})
}

func (s *server) handleContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.backend.Contacts(r.Context())
	if err != nil {
		s.backendError(w, "contacts", err)
		return
	}
	s.ok(w, map[string][]backend.Contact{"contacts": contacts})
}

func (s *server) handleFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.backend.Friends(r.Context())
	if err != nil {
		s.backendError(w, "friends", err)
		return
	}
	s.ok(w, map[string][]backend.Contact{"friends": friends})
}

func (s *server) handleDBs(w http.ResponseWriter, r *http.Request) {
	dbs, err := s.backend.DBs(r.Context())
	if err != nil {
		s.backendError(w, "dbs", err)
		return
	}
	s.ok(w, map[string][]string{"dbs": dbs})
}

func (s *server) handleTables(w http.ResponseWriter, r *http.Request) {
	db := strings.TrimSpace(chi.URLParam(r, "db"))
	if db == "" {
		s.badRequest(w, "db is required")
		return
	}

	tables, err := s.backend.Tables(r.Context(), db)
	if err != nil {
		s.backendError(w, "tables", err)
		return
	}
	s.ok(w, map[string][]backend.Table{"tables": tables})
}

func (s *server) handleRefreshMoments(w http.ResponseWriter, r *http.Request) {
	id := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("id")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.badRequest(w, "invalid id")
			return
		}
		id = parsed
	}

	if err := s.backend.RefreshMoments(r.Context(), id); err != nil {
		s.backendError(w, "refresh_moments", err)
		return
	}
	s.ok(w, nil)
}

func (s *server) handleChatroomMembers(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.URL.Query().Get("roomid"))
	if roomID == "" {
		s.badRequest(w, "roomid is required")
		return
	}

	members, err := s.backend.ChatroomMembers(r.Context(), roomID)
	if err != nil {
		s.backendError(w, "chatroom_members", err)
		return
	}
	s.ok(w, map[string]map[string]string{"members": members})
}

func (s *server) handleAliasInChatroom(w http.ResponseWriter, r *http.Request) {
	wxid := strings.TrimSpace(r.URL.Query().Get("wxid"))
	roomID := strings.TrimSpace(r.URL.Query().Get("roomid"))
	if wxid == "" || roomID == "" {
		s.badRequest(w, "wxid and roomid are required")
		return
	}

	alias, err := s.backend.AliasInChatroom(r.Context(), wxid, roomID)
	if err != nil {
		s.backendError(w, "alias_in_chatroom", err)
		return
	}
	s.ok(w, map[string]string{"alias": alias})
}

// ---------------- POST HANDLERS ----------------

type sendTextRequest struct {
	Msg      string `json:"msg"`
	Receiver string `json:"receiver"`
	Aters    string `json:"aters"`
}

func (s *server) handleSendText(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[sendTextRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Msg) == "" {
		s.badRequest(w, "msg is required")
		return
	}
	if req.Receiver == "" {
		req.Receiver = "filehelper"
	}

	if err := s.backend.SendText(r.Context(), req.Msg, req.Receiver, req.Aters); err != nil {
		s.backendError(w, "send_text", err)
		return
	}
	s.ok(w, nil)
}

type sendPathRequest struct {
	Path     string `json:"path"`
	Receiver string `json:"receiver"`
}

func (s *server) handleSendImage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[sendPathRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.badRequest(w, "path is required")
		return
	}
	if req.Receiver == "" {
		req.Receiver = "filehelper"
	}

	if err := s.backend.SendImage(r.Context(), req.Path, req.Receiver); err != nil {
		s.backendError(w, "send_image", err)
		return
	}
	s.ok(w, nil)
}

func (s *server) handleSendFile(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[sendPathRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.badRequest(w, "path is required")
		return
	}
	if req.Receiver == "" {
		req.Receiver = "filehelper"
	}

	if err := s.backend.SendFile(r.Context(), req.Path, req.Receiver); err != nil {
		s.backendError(w, "send_file", err)
		return
	}
	s.ok(w, nil)
}

type richTextRequest struct {
	Name     string `json:"name"`
	Account  string `json:"account"`
	Title    string `json:"title"`
	Digest   string `json:"digest"`
	URL      string `json:"url"`
	ThumbURL string `json:"thumburl"`
	Receiver string `json:"receiver"`
}

func (s *server) handleSendRichText(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[richTextRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.URL) == "" {
		s.badRequest(w, "title and url are required")
		return
	}
	if req.Receiver == "" {
		req.Receiver = "filehelper"
	}

	card := backend.RichText{
		Name:     req.Name,
		Account:  req.Account,
		Title:    req.Title,
		Digest:   req.Digest,
		URL:      req.URL,
		ThumbURL: req.ThumbURL,
		Receiver: req.Receiver,
	}
	if err := s.backend.SendRichText(r.Context(), card); err != nil {
		s.backendError(w, "send_rich_text", err)
		return
	}
	s.ok(w, nil)
}

type patRequest struct {
	RoomID string `json:"roomid"`
	Wxid   string `json:"wxid"`
}

func (s *server) handleSendPat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[patRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.Wxid) == "" {
		s.badRequest(w, "roomid and wxid are required")
		return
	}

	if err := s.backend.SendPat(r.Context(), req.RoomID, req.Wxid); err != nil {
		s.backendError(w, "send_pat", err)
		return
	}
	s.ok(w, nil)
}

type sqlRequest struct {
	DB  string `json:"db"`
	SQL string `json:"sql"`
}

func (s *server) handleQuerySQL(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[sqlRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.DB) == "" || strings.TrimSpace(req.SQL) == "" {
		s.badRequest(w, "db and sql are required")
		return
	}

	rows, err := s.backend.QuerySQL(r.Context(), req.DB, req.SQL)
	if err != nil {
		s.backendError(w, "query_sql", err)
		return
	}

	// Binary columns are not representable in JSON; ship them as base64.
	for _, row := range rows {
		for k, v := range row {
			if b, isBytes := v.([]byte); isBytes {
				row[k] = base64.StdEncoding.EncodeToString(b)
			}
		}
	}
	s.ok(w, map[string][]map[string]any{"rows": rows})
}

type acceptFriendRequest struct {
	V3    string `json:"v3"`
	V4    string `json:"v4"`
	Scene int    `json:"scene"`
}

func (s *server) handleAcceptFriend(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[acceptFriendRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.V3) == "" || strings.TrimSpace(req.V4) == "" {
		s.badRequest(w, "v3 and v4 are required")
		return
	}
	if req.Scene == 0 {
		req.Scene = 30
	}

	if err := s.backend.AcceptFriend(r.Context(), req.V3, req.V4, req.Scene); err != nil {
		s.backendError(w, "accept_friend", err)
		return
	}
	s.ok(w, nil)
}

type chatroomMembersRequest struct {
	RoomID string `json:"roomid"`
	Wxids  string `json:"wxids"`
}

func (req chatroomMembersRequest) validate() error {
	if strings.TrimSpace(req.RoomID) == "" || strings.TrimSpace(req.Wxids) == "" {
		return errors.New("roomid and wxids are required")
	}
	return nil
}

func (s *server) handleAddChatroomMembers(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[chatroomMembersRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	if err := s.backend.AddChatroomMembers(r.Context(), req.RoomID, req.Wxids); err != nil {
		s.backendError(w, "add_chatroom_members", err)
		return
	}
	s.ok(w, nil)
}

func (s *server) handleInviteChatroomMembers(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[chatroomMembersRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	if err := s.backend.InviteChatroomMembers(r.Context(), req.RoomID, req.Wxids); err != nil {
		s.backendError(w, "invite_chatroom_members", err)
		return
	}
	s.ok(w, nil)
}

func (s *server) handleDelChatroomMembers(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[chatroomMembersRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.badRequest(w, err.Error())
		return
	}

	if err := s.backend.DelChatroomMembers(r.Context(), req.RoomID, req.Wxids); err != nil {
		s.backendError(w, "del_chatroom_members", err)
		return
	}
	s.ok(w, nil)
}

type receiveTransferRequest struct {
	Wxid          string `json:"wxid"`
	TransferID    string `json:"transferid"`
	TransactionID string `json:"transactionid"`
}

func (s *server) handleReceiveTransfer(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[receiveTransferRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Wxid) == "" ||
		strings.TrimSpace(req.TransferID) == "" ||
		strings.TrimSpace(req.TransactionID) == "" {
		s.badRequest(w, "wxid, transferid and transactionid are required")
		return
	}

	if err := s.backend.ReceiveTransfer(r.Context(), req.Wxid, req.TransferID, req.TransactionID); err != nil {
		s.backendError(w, "receive_transfer", err)
		return
	}
	s.ok(w, nil)
}

type saveImageRequest struct {
	ID      uint64 `json:"id"`
	Extra   string `json:"extra"`
	Dir     string `json:"dir"`
	Timeout int    `json:"timeout"`
}

func (s *server) handleSaveImage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[saveImageRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if req.ID == 0 || strings.TrimSpace(req.Extra) == "" || strings.TrimSpace(req.Dir) == "" {
		s.badRequest(w, "id, extra and dir are required")
		return
	}
	if req.Timeout <= 0 {
		req.Timeout = 30
	}

	path, err := s.backend.DownloadImage(r.Context(), req.ID, req.Extra, req.Dir, time.Duration(req.Timeout)*time.Second)
	if err != nil {
		s.backendError(w, "download_image", err)
		return
	}
	s.ok(w, map[string]string{"path": path})
}

type saveAudioRequest struct {
	ID      uint64 `json:"id"`
	Dir     string `json:"dir"`
	Timeout int    `json:"timeout"`
}

func (s *server) handleSaveAudio(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[saveAudioRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if req.ID == 0 || strings.TrimSpace(req.Dir) == "" {
		s.badRequest(w, "id and dir are required")
		return
	}
	if req.Timeout <= 0 {
		req.Timeout = 30
	}

	path, err := s.backend.SaveAudio(r.Context(), req.ID, req.Dir, time.Duration(req.Timeout)*time.Second)
	if err != nil {
		s.backendError(w, "save_audio", err)
		return
	}
	s.ok(w, map[string]string{"path": path})
}

type ocrRequest struct {
	Extra   string `json:"extra"`
	Timeout int    `json:"timeout"`
}

func (s *server) handleOCRResult(w http.ResponseWriter, r *http.Request) {
	req, err := decodeBody[ocrRequest](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Extra) == "" {
		s.badRequest(w, "extra is required")
		return
	}
	if req.Timeout <= 0 {
		req.Timeout = 30
	}

	text, err := s.backend.OCRResult(r.Context(), req.Extra, time.Duration(req.Timeout)*time.Second)
	if err != nil {
		s.backendError(w, "ocr_result", err)
		return
	}
	s.ok(w, map[string]string{"ocr": text})
}

func (s *server) handleMsgCallback(w http.ResponseWriter, r *http.Request) {
	ev, err := decodeBody[domain.Event](r)
	if err != nil {
		s.badRequest(w, "invalid request body")
		return
	}

	s.logger.Info("callback sample received event",
		"seq", ev.Seq,
		"kind", ev.Kind,
		"sender", ev.Payload.Sender,
	)
	s.ok(w, nil)
}

// ---------------- HELPERS ----------------

func (s *server) ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: 0, Message: "ok", Data: data})
}

func (s *server) badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Status: -1, Message: msg})
}

func (s *server) backendError(w http.ResponseWriter, op string, err error) {
	var opErr *backend.OpError

	switch {
	case errors.Is(err, domain.ErrBackendUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, envelope{
			Status:  -1,
			Message: "backend unavailable",
		})
	case errors.As(err, &opErr):
		s.logger.Warn("backend reported failure", "op", op, "status", opErr.Status)
		writeJSON(w, http.StatusBadGateway, envelope{
			Status:  opErr.Status,
			Message: "backend operation failed",
		})
	default:
		s.logger.Error("backend call failed", "op", op, "error", err)
		writeJSON(w, http.StatusBadGateway, envelope{
			Status:  -1,
			Message: "backend call failed",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody parses exactly one JSON object into T, rejecting unknown fields.
// An empty body yields the zero value; required-field checks happen in the
// handler.
func decodeBody[T any](r *http.Request) (T, error) {
	var req T
	if r == nil || r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			var zero T
			return zero, nil
		}
		var zero T
		return zero, err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var zero T
		return zero, errors.New("request body must contain exactly one JSON object")
	}

	return req, nil
}

func valueOrDefault(value, defaultValue string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return defaultValue
	}
	return trimmed
}
