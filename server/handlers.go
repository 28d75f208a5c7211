package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/runner"
	"github.com/agentrelay/agentrelay/store"
	"github.com/agentrelay/agentrelay/uitool"
)

type errorResponse struct {
	Error string `json:"error"`
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// createSystem registers a new system in pending state. Structural
// validation of the routing graph is deferred to deploy time so designs can
// be saved incrementally.
func (s *Server) createSystem(c *gin.Context) {
	var spec core.SystemSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		fail(c, http.StatusBadRequest, "invalid system spec: "+err.Error())
		return
	}
	if spec.ID == "" {
		spec.ID = core.NewID()
	}
	spec.Status = core.StatusPending
	spec.Metadata.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.systems[spec.ID] = &spec
	s.mu.Unlock()

	s.logger.Info("system created system_id=%s", spec.ID)
	c.JSON(http.StatusOK, &spec)
}

func (s *Server) listSystems(c *gin.Context) {
	s.mu.RLock()
	out := make([]*core.SystemSpec, 0, len(s.systems))
	for _, spec := range s.systems {
		out = append(out, spec)
	}
	s.mu.RUnlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) getSystem(c *gin.Context) {
	s.mu.RLock()
	spec, ok := s.systems[c.Param("id")]
	s.mu.RUnlock()
	if !ok {
		fail(c, http.StatusNotFound, "system not found")
		return
	}
	c.JSON(http.StatusOK, spec)
}

// updateSystem replaces a system's definition. An active system drops back
// to pending and must be redeployed for the new definition to serve chat.
func (s *Server) updateSystem(c *gin.Context) {
	id := c.Param("id")

	s.mu.RLock()
	existing, ok := s.systems[id]
	s.mu.RUnlock()
	if !ok {
		fail(c, http.StatusNotFound, "system not found")
		return
	}

	var spec core.SystemSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		fail(c, http.StatusBadRequest, "invalid system spec: "+err.Error())
		return
	}
	spec.ID = id
	spec.Status = core.StatusPending
	spec.Metadata.CreatedAt = existing.Metadata.CreatedAt

	s.mu.Lock()
	s.systems[id] = &spec
	s.mu.Unlock()
	s.runner.UnloadSystem(id)

	c.JSON(http.StatusOK, &spec)
}

func (s *Server) deleteSystem(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	_, ok := s.systems[id]
	delete(s.systems, id)
	s.mu.Unlock()
	if !ok {
		fail(c, http.StatusNotFound, "system not found")
		return
	}
	s.runner.UnloadSystem(id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// deploySystem validates the system and registers it with the runner:
// pending -> deploying -> active, or -> error when validation fails.
func (s *Server) deploySystem(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	spec, ok := s.systems[id]
	if ok {
		spec.Status = core.StatusDeploying
	}
	s.mu.Unlock()
	if !ok {
		fail(c, http.StatusNotFound, "system not found")
		return
	}

	if err := s.runner.LoadSystem(spec); err != nil {
		s.mu.Lock()
		spec.Status = core.StatusError
		s.mu.Unlock()
		s.logger.Warn("system deploy failed system_id=%s: %v", id, err)
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	s.mu.Lock()
	spec.Status = core.StatusActive
	spec.Metadata.DeployedAt = &now
	s.mu.Unlock()

	s.logger.Info("system deployed system_id=%s", id)
	c.JSON(http.StatusOK, spec)
}

type chatRequest struct {
	SessionID string   `json:"session_id"`
	Message   string   `json:"message"`
	UITools   []string `json:"ui_tools"`
}

type chatResponse struct {
	SessionID string                `json:"session_id"`
	Result    *core.ExecutionResult `json:"result"`
}

// chat drives one routing-loop turn against a deployed system. Session ids
// are minted server-side as ULIDs when the client does not continue an
// existing session.
func (s *Server) chat(c *gin.Context) {
	systemID := c.Param("systemId")

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid chat request: "+err.Error())
		return
	}
	if req.Message == "" {
		fail(c, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}

	result, err := s.runner.Run(c.Request.Context(), systemID, runner.RunInput{
		Messages:  []core.Message{core.NewUserMessage(req.Message)},
		UITools:   req.UITools,
		SessionID: sessionID,
	})
	if err != nil {
		if errors.Is(err, core.ErrSystemNotLoaded) {
			fail(c, http.StatusNotFound, "system not deployed")
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now().UTC()
	s.mu.Lock()
	if spec, ok := s.systems[systemID]; ok {
		spec.Metadata.LastActiveAt = &now
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, chatResponse{SessionID: sessionID, Result: &result})
}

type interactionResponse struct {
	Resumed bool                  `json:"resumed"`
	Result  *core.ExecutionResult `json:"result,omitempty"`
}

// uiInteraction records an inbound UI event and then attempts to resume the
// owning session.
func (s *Server) uiInteraction(c *gin.Context) {
	var ev core.UIEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		fail(c, http.StatusBadRequest, "invalid interaction event: "+err.Error())
		return
	}
	if ev.SessionID == "" || ev.ToolID == "" {
		fail(c, http.StatusBadRequest, "session_id and tool_id are required")
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	if err := s.recorder.Handle(ev); err != nil {
		fail(c, http.StatusNotFound, err.Error())
		return
	}

	result, err := s.runner.Resume(c.Request.Context(), ev.SessionID, &ev)
	if err != nil {
		if errors.Is(err, core.ErrSystemNotLoaded) {
			fail(c, http.StatusNotFound, "owning system not deployed")
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, interactionResponse{Resumed: false})
		return
	}
	c.JSON(http.StatusOK, interactionResponse{Resumed: true, Result: result})
}

// interactionHistory returns the recorded interaction history for a session.
func (s *Server) interactionHistory(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		fail(c, http.StatusBadRequest, "sessionId query parameter is required")
		return
	}
	st, ok := s.runner.Sessions().Get(sessionID)
	if !ok {
		fail(c, http.StatusNotFound, "session not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":   sessionID,
		"interactions": st.Interactions(),
	})
}

type registerToolRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// registerTool stores a generated UI component in the tool registry. The id
// defaults to a slug of the tool name.
func (s *Server) registerTool(c *gin.Context) {
	var req registerToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid tool registration: "+err.Error())
		return
	}
	if req.Name == "" || req.Source == "" {
		fail(c, http.StatusBadRequest, "name and source are required")
		return
	}

	writer, ok := s.tools.(uitool.Writer)
	if !ok {
		fail(c, http.StatusNotImplemented, "tool registry is read-only")
		return
	}

	id := req.ID
	if id == "" {
		id = toolSlug(req.Name)
	}
	tool := uitool.Tool{ID: id, Name: req.Name, Description: req.Description}
	if err := writer.Put(tool, []byte(req.Source)); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("ui tool registered tool_id=%s", id)
	c.JSON(http.StatusOK, tool)
}

func (s *Server) listTools(c *gin.Context) {
	tools, err := s.tools.List()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools, "count": len(tools)})
}

func (s *Server) deleteTool(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.tools.Resolve(id); err != nil {
		fail(c, http.StatusNotFound, "tool not found")
		return
	}
	if err := s.tools.Delete(id); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("ui tool deleted tool_id=%s", id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// toolSlug lowercases a display name into a registry id.
func toolSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// getSession reads the persisted session record.
func (s *Server) getSession(c *gin.Context) {
	rec, err := s.persist.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, "session not found")
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, rec)
}
