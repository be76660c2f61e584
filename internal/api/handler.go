package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/RichardoC/bizchat/internal/chat"
	"github.com/RichardoC/bizchat/internal/export"
	"github.com/RichardoC/bizchat/internal/session"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Replier interface {
	Reply(ctx context.Context, in chat.Input) (chat.Output, error)
}

type Handler struct {
	chat     Replier
	cookies  *session.Cookies
	messages export.MessageSource
	admin    *AdminAuth
	logger   *zap.Logger
}

func NewHandler(chatService Replier, cookies *session.Cookies, messages export.MessageSource, admin *AdminAuth, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		chat:     chatService,
		cookies:  cookies,
		messages: messages,
		admin:    admin,
		logger:   logger,
	}
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Routes returns the full HTTP surface. Static files are served from
// staticDir when it is not empty.
func (h *Handler) Routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", h.HandleChat)
	mux.Handle("/export", h.admin.Require(http.HandlerFunc(h.HandleExport)))
	mux.HandleFunc("/health", h.HandleHealth)

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	return chainMiddlewares(mux,
		withRecovery(h.logger),
		withLogging(h.logger),
		withRequestID,
	)
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method_not_allowed"})
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
		return
	}

	convID, _ := h.cookies.Resolve(r)

	out, err := h.chat.Reply(r.Context(), chat.Input{
		ConversationID: convID,
		Text:           req.Message,
		IP:             clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	if err != nil {
		h.logger.Error("Failed to process message",
			zap.Error(err),
			zap.String("conv_id", convID),
			zap.String("request_id", RequestIDFrom(r.Context())))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error", Code: errorCode(err)})
		return
	}

	if out.NewConversation {
		if err := h.cookies.Issue(w, out.ConversationID); err != nil {
			h.logger.Error("Failed to issue conversation cookie", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, ChatResponse{Reply: out.Reply})
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method_not_allowed"})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="messages.csv"`)

	cw := &countingWriter{w: w}
	rows, err := export.WriteCSV(r.Context(), cw, h.messages)
	if err != nil {
		h.logger.Error("Failed to export messages", zap.Error(err), zap.Int("rows", rows))
		if cw.n == 0 {
			w.Header().Del("Content-Disposition")
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "server_error"})
		}
		return
	}

	h.logger.Info("Exported messages", zap.Int("rows", rows))
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorCode(err error) string {
	var chatErr *chat.Error
	if errors.As(err, &chatErr) {
		return string(chatErr.Code)
	}
	return string(chat.ErrorInternal)
}

// clientIP prefers the first X-Forwarded-For hop and falls back to the peer
// address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
