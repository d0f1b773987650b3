package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/doclens/doclens/internal/domain/approval"
	"github.com/doclens/doclens/internal/port/docstore"
	"github.com/doclens/doclens/internal/service"
)

// Handlers holds the API surface's collaborators.
type Handlers struct {
	sessions *service.Sessions
	store    docstore.Store
}

// NewHandlers creates the handler set.
func NewHandlers(sessions *service.Sessions, store docstore.Store) *Handlers {
	return &Handlers{sessions: sessions, store: store}
}

// --- Analyses ---

type startAnalysisRequest struct {
	Task string `json:"task"`
}

// StartAnalysis launches a new session, superseding a running one.
func (h *Handlers) StartAnalysis(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[startAnalysisRequest](w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeError(w, http.StatusBadRequest, "task is required")
		return
	}

	sess, err := h.sessions.Start(r.Context(), req.Task)
	if err != nil {
		writeDomainError(w, err, "could not start analysis")
		return
	}
	writeJSON(w, http.StatusAccepted, sess)
}

// GetAnalysis returns the status snapshot of one session.
func (h *Handlers) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	status, err := h.sessions.Status(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// GetCurrentAnalysis returns the status of the most recent session.
func (h *Handlers) GetCurrentAnalysis(w http.ResponseWriter, _ *http.Request) {
	cur := h.sessions.Current()
	if cur == nil {
		writeError(w, http.StatusNotFound, "no analysis has been started")
		return
	}
	status, err := h.sessions.Status(cur.ID)
	if err != nil {
		writeDomainError(w, err, "analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// --- Approvals ---

// gateFor picks the gate addressed by the request: an explicit session query
// parameter, or the current session.
func (h *Handlers) gateFor(w http.ResponseWriter, r *http.Request) (*service.Gate, bool) {
	if id := r.URL.Query().Get("session"); id != "" {
		sess, err := h.sessions.Get(id)
		if err != nil {
			writeDomainError(w, err, "session not found")
			return nil, false
		}
		return sess.Gate, true
	}
	cur := h.sessions.Current()
	if cur == nil {
		writeError(w, http.StatusNotFound, "no analysis has been started")
		return nil, false
	}
	return cur.Gate, true
}

// ListPendingApprovals returns pending requests, oldest first.
func (h *Handlers) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	gate, ok := h.gateFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, gate.ListPending())
}

// ListApprovalHistory returns resolved requests, newest last. An optional
// limit query parameter restricts the result to the most recent entries.
func (h *Handlers) ListApprovalHistory(w http.ResponseWriter, r *http.Request) {
	gate, ok := h.gateFor(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, gate.History(limit))
}

// GetApproval returns one approval request, pending or resolved.
func (h *Handlers) GetApproval(w http.ResponseWriter, r *http.Request) {
	gate, ok := h.gateFor(w, r)
	if !ok {
		return
	}
	req, err := gate.Get(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "approval not found")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// RespondApproval applies the operator's disposition to a pending request.
func (h *Handlers) RespondApproval(w http.ResponseWriter, r *http.Request) {
	gate, ok := h.gateFor(w, r)
	if !ok {
		return
	}
	resp, ok := readJSON[approval.RespondRequest](w, r)
	if !ok {
		return
	}
	if err := resp.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resolved, err := gate.Resolve(r.Context(), urlParam(r, "id"), resp)
	if err != nil {
		writeDomainError(w, err, "approval not found")
		return
	}
	writeJSON(w, http.StatusOK, resolved)
}

// --- Workspace files ---

func (h *Handlers) workspaceFor(w http.ResponseWriter, r *http.Request) (*service.Workspace, bool) {
	sess, err := h.sessions.Get(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "analysis not found")
		return nil, false
	}
	return sess.Workspace, true
}

// ListFiles lists the session workspace.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	files, err := ws.ListFiles()
	if err != nil {
		writeDomainError(w, err, "could not list files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// GetFile returns the content of one workspace file.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	path := urlParam(r, "*")
	content, err := ws.ReadFile(path)
	if err != nil {
		writeDomainError(w, err, "file not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path, "content": content})
}

type putFileRequest struct {
	Content string `json:"content"`
}

// PutFile writes a file into the session workspace on the operator's behalf.
func (h *Handlers) PutFile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspaceFor(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[putFileRequest](w, r)
	if !ok {
		return
	}
	path := urlParam(r, "*")
	if err := ws.WriteFile(path, req.Content); err != nil {
		writeDomainError(w, err, "could not write file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// --- Documents ---

// ListDocuments returns the document corpus.
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.ListDocuments(r.Context())
	if err != nil {
		writeDomainError(w, err, "could not list documents")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetDocument returns one document with its page summaries.
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(urlParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.store.GetDocument(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "document not found")
		return
	}
	pages, err := h.store.ListPages(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "could not list pages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": doc, "pages": pages})
}

// GetPageImage serves the rasterized image of one document page, as stored
// by the ingest pipeline.
func (h *Handlers) GetPageImage(w http.ResponseWriter, r *http.Request) {
	docID, err := strconv.ParseInt(urlParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}
	num, err := strconv.Atoi(urlParam(r, "num"))
	if err != nil || num < 1 {
		writeError(w, http.StatusBadRequest, "invalid page number")
		return
	}

	pages, err := h.store.GetPages(r.Context(), docID, []int{num})
	if err != nil {
		writeDomainError(w, err, "page not found")
		return
	}
	if len(pages) == 0 || pages[0].ImagePath == "" {
		writeError(w, http.StatusNotFound, "no image for page")
		return
	}
	http.ServeFile(w, r, pages[0].ImagePath)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
