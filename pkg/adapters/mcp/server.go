// Package mcp exposes a tickstory engine as Model Context Protocol tools, so
// agents can play, validate and draw stories.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/tickstory"
	"github.com/aretw0/tickstory/internal/input"
	"github.com/aretw0/tickstory/internal/logging"
	"github.com/aretw0/tickstory/internal/presentation/graph"
	"github.com/aretw0/tickstory/pkg/domain"
	"github.com/aretw0/tickstory/pkg/ports"
	"github.com/aretw0/tickstory/pkg/sender"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StoriesURI is the resource listing the story keys.
const StoriesURI = "tickstory://stories"

// Engine is the part of tickstory.Engine the server drives.
type Engine interface {
	Catalog() ports.StoryCatalog
	Validate(ctx context.Context, storyKey string) ([]string, error)
	Process(ctx context.Context, storyKey, sessionID string, sender ports.Sender, action *domain.UserAction) (domain.Result, error)
}

// TurnResponse reports the outcome of a turn and what was sent to the user.
type TurnResponse struct {
	SessionID     string           `json:"session_id" jsonschema_description:"The conversation the turn belongs to"`
	Outcome       string           `json:"outcome" jsonschema_description:"success or redirect"`
	RedirectStory string           `json:"redirect_story,omitempty" jsonschema_description:"The story taking over the conversation"`
	CurrentState  string           `json:"current_state,omitempty" jsonschema_description:"The state the conversation stands in"`
	Finished      bool             `json:"finished" jsonschema_description:"Indicates if the story reached a final action"`
	Messages      []sender.Message `json:"messages" jsonschema_description:"Answers sent to the user, in order"`
}

// ValidationResponse lists the configuration errors of a story.
type ValidationResponse struct {
	Story  string   `json:"story"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	sessions  ports.SessionStore
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server. sessions backs the graph overlay.
func NewServer(engine Engine, sessions ports.SessionStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		logger:    logger,
		mcpServer: server.NewMCPServer("tickstory-mcp", strings.TrimSpace(tickstory.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_stories",
		mcp.WithDescription("List the keys of the available stories."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keys, err := s.engine.Catalog().ListStories(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		b, _ := json.Marshal(keys)
		return mcp.NewToolResultText(string(b)), nil
	})

	processTool := mcp.NewTool("process_turn",
		mcp.WithDescription("Send a user action (an NLU intent and its entities) to a story and get the answers."),
		mcp.WithString("story", mcp.Required(), mcp.Description("The story key")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("The conversation id")),
		mcp.WithString("intent", mcp.Required(), mcp.Description("The detected intent")),
		mcp.WithString("entities", mcp.Description("JSON object of entity values keyed by role (optional)")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(processTool, mcp.NewStructuredToolHandler(s.handleProcess))

	validateTool := mcp.NewTool("validate_story",
		mcp.WithDescription("Check a story for configuration errors."),
		mcp.WithString("story", mcp.Required(), mcp.Description("The story key")),
		mcp.WithOutputSchema[ValidationResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Draw the state machine of a story as a Mermaid flowchart."),
		mcp.WithString("story", mcp.Required(), mcp.Description("The story key")),
		mcp.WithString("session_id", mcp.Description("Highlight the state of this conversation (optional)")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.graph(ctx, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StoriesURI, "Available Stories",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		keys, err := s.engine.Catalog().ListStories(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list stories: %w", err)
		}
		b, _ := json.Marshal(keys)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: StoriesURI, MIMEType: "application/json", Text: string(b)},
		}, nil
	})
}

func (s *Server) handleProcess(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	story, _ := args["story"].(string)
	sessionID, _ := args["session_id"].(string)
	intent, _ := args["intent"].(string)

	clean, err := input.Sanitize(strings.TrimSpace(intent), 0)
	if err != nil {
		s.logger.Warn("MCP process: input rejected", "error", err, "size", len(intent))
		return TurnResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	action := &domain.UserAction{Intent: clean}
	if raw, ok := args["entities"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &action.Entities); err != nil {
			return TurnResponse{}, fmt.Errorf("entities must be a JSON object: %w", err)
		}
		if err := input.SanitizeEntities(action.Entities, 0); err != nil {
			return TurnResponse{}, fmt.Errorf("input rejected: %w", err)
		}
	}

	rec := sender.NewRecorder()
	result, err := s.engine.Process(ctx, story, sessionID, rec, action)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("process failed: %w", err)
	}

	resp := TurnResponse{SessionID: sessionID, Messages: rec.Messages()}
	if resp.Messages == nil {
		resp.Messages = []sender.Message{}
	}
	switch res := result.(type) {
	case domain.Success:
		resp.Outcome = "success"
		resp.CurrentState = res.Session.CurrentState
		resp.Finished = res.Session.Finished
	case domain.Redirect:
		resp.Outcome = "redirect"
		resp.RedirectStory = res.StoryID
	}
	return resp, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidationResponse, error) {
	story, _ := args["story"].(string)
	errs, err := s.engine.Validate(ctx, story)
	if err != nil {
		return ValidationResponse{}, err
	}
	if errs == nil {
		errs = []string{}
	}
	return ValidationResponse{Story: story, Valid: len(errs) == 0, Errors: errs}, nil
}

func (s *Server) graph(ctx context.Context, args map[string]any) (string, error) {
	key, _ := args["story"].(string)
	story, err := s.engine.Catalog().GetStory(ctx, key)
	if err != nil {
		return "", err
	}
	var overlay *graph.GraphOverlay
	if id, _ := args["session_id"].(string); id != "" {
		sess, err := s.sessions.Load(ctx, id)
		if err != nil {
			return "", err
		}
		overlay = graph.OverlayFromSession(sess)
	}
	return graph.GenerateMermaid(story, overlay)
}
