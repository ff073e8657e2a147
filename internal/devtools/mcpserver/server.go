package mcpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arolang/aro/internal/ast"
	"github.com/arolang/aro/internal/cycle"
	"github.com/arolang/aro/internal/fold"
	"github.com/arolang/aro/internal/openapi"
	"github.com/arolang/aro/pkg/version"
)

// Server is the MCP devtools server for aro. It bridges AI clients
// (Claude Code, Cursor) with the compiler's diagnostic operations over
// a loaded analyzed program and, optionally, an OpenAPI document.
type Server struct {
	mcp     *mcp.Server
	program ast.Program
	logger  *slog.Logger

	// OpenAPI state; nil when the server was started without a document.
	doc       *openapi.Document
	router    *openapi.CachedRouter
	validator *openapi.Validator

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// FoldInput defines the input schema for the fold_expression tool.
type FoldInput struct {
	Expression string `json:"expression" jsonschema:"analyzed-expression JSON to fold"`
}

// FoldOutput defines the output schema for the fold_expression tool.
type FoldOutput struct {
	Constant bool `json:"constant" jsonschema:"whether the expression is a compile-time constant"`
	Value    any  `json:"value,omitempty" jsonschema:"folded literal value, present when constant"`
}

// MatchRouteInput defines the input schema for the match_route tool.
type MatchRouteInput struct {
	Method string `json:"method" jsonschema:"HTTP method, e.g. GET"`
	Path   string `json:"path" jsonschema:"request path to match, e.g. /users/42"`
}

// MatchRouteOutput defines the output schema for the match_route tool.
type MatchRouteOutput struct {
	Matched        bool              `json:"matched" jsonschema:"whether any route matched"`
	OperationID    string            `json:"operation_id,omitempty" jsonschema:"operationId of the matched route"`
	Template       string            `json:"template,omitempty" jsonschema:"path template of the matched route"`
	PathParameters map[string]string `json:"path_parameters,omitempty" jsonschema:"parameters bound from template placeholders"`
}

// ValidatePayloadInput defines the input schema for the validate_payload tool.
type ValidatePayloadInput struct {
	Schema  string `json:"schema" jsonschema:"name of the schema under components/schemas"`
	Payload string `json:"payload" jsonschema:"JSON payload to validate"`
}

// ValidationIssue is one schema violation.
type ValidationIssue struct {
	Kind    string `json:"kind" jsonschema:"stable error-kind identifier"`
	Message string `json:"message" jsonschema:"human-readable description of the violation"`
}

// ValidatePayloadOutput defines the output schema for the validate_payload tool.
type ValidatePayloadOutput struct {
	Valid  bool              `json:"valid" jsonschema:"whether the payload satisfies the schema"`
	Issues []ValidationIssue `json:"issues,omitempty" jsonschema:"violations, empty when valid"`
}

// DetectCyclesInput defines the input schema for the detect_cycles tool (no parameters).
type DetectCyclesInput struct{}

// CycleReport is one detected emit-graph cycle.
type CycleReport struct {
	Path        []string `json:"path" jsonschema:"event types forming the cycle, first repeated at the end"`
	FeatureSets []string `json:"feature_sets" jsonschema:"handlers whose emit statements form the cycle"`
}

// DetectCyclesOutput defines the output schema for the detect_cycles tool.
type DetectCyclesOutput struct {
	Cycles []CycleReport `json:"cycles" jsonschema:"detected cycles, empty when the emit graph is acyclic"`
}

// ProgramStatusInput defines the input schema for the program_status tool (no parameters).
type ProgramStatusInput struct{}

// ProgramStatusOutput defines the output schema for the program_status tool.
type ProgramStatusOutput struct {
	FeatureSets int  `json:"feature_sets"`
	EntryPoints int  `json:"entry_points"`
	Handlers    int  `json:"handlers"`
	Observers   int  `json:"observers"`
	Routes      int  `json:"routes"`
	HasOpenAPI  bool `json:"has_openapi"`
}

// NewServer creates a new devtools MCP server over program. doc may be
// nil; routing and schema tools then answer with a no-document error.
func NewServer(program ast.Program, doc *openapi.Document) *Server {
	s := &Server{
		program: program,
		doc:     doc,
		logger:  slog.Default(),
	}

	if doc != nil {
		s.router = openapi.NewCachedRouter(openapi.NewRouter(doc.Routes), 256)
		s.validator = openapi.NewValidator(doc.Components)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "aro-devtools",
			Version: version.Version,
		},
		nil, // ServerOptions - capabilities are inferred from registered tools
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "aro-devtools", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "fold_expression",
			Description: "Fold an analyzed expression to a literal at compile time. Returns whether the expression is constant and, if so, its folded value.",
		},
		{
			Name:        "match_route",
			Description: "Match an HTTP method and path against the loaded OpenAPI document's route table, the same specificity-ordered lookup the runtime router performs.",
		},
		{
			Name:        "validate_payload",
			Description: "Validate a JSON payload against a named schema from the loaded OpenAPI document's components/schemas table.",
		},
		{
			Name:        "detect_cycles",
			Description: "Run the event-chain analyzer over the loaded program and report every cyclic handler-emit chain.",
		},
		{
			Name:        "program_status",
			Description: "Summarize the loaded program: feature sets, entry points, handlers, observers, and whether an OpenAPI document is attached.",
		},
	}
}

// CallTool invokes a tool by name with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch name {
	case "fold_expression":
		expr, _ := args["expression"].(string)
		return s.handleFold(ctx, FoldInput{Expression: expr})
	case "match_route":
		method, _ := args["method"].(string)
		path, _ := args["path"].(string)
		return s.handleMatchRoute(ctx, MatchRouteInput{Method: method, Path: path})
	case "validate_payload":
		schema, _ := args["schema"].(string)
		payload, _ := args["payload"].(string)
		return s.handleValidatePayload(ctx, ValidatePayloadInput{Schema: schema, Payload: payload})
	case "detect_cycles":
		return s.handleDetectCycles(ctx)
	case "program_status":
		return s.handleProgramStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// handleFold handles the fold_expression tool invocation.
func (s *Server) handleFold(_ context.Context, input FoldInput) (*FoldOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	if strings.TrimSpace(input.Expression) == "" {
		return nil, NewInvalidParamsError("expression parameter is required and must be a non-empty JSON string")
	}

	var expr ast.Expression
	if err := json.Unmarshal([]byte(input.Expression), &expr); err != nil {
		return nil, NewInvalidParamsError(fmt.Sprintf("expression is not valid analyzed-expression JSON: %v", err))
	}

	out := &FoldOutput{Constant: fold.IsConstant(expr)}
	if lit, ok := fold.Evaluate(expr); ok {
		out.Constant = true
		out.Value = literalToValue(lit)
	}

	s.logger.Info("fold_expression completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("constant", out.Constant))

	return out, nil
}

// handleMatchRoute handles the match_route tool invocation.
func (s *Server) handleMatchRoute(_ context.Context, input MatchRouteInput) (*MatchRouteOutput, error) {
	if s.router == nil {
		return nil, MapError(ErrNoDocument)
	}
	if input.Method == "" || input.Path == "" {
		return nil, NewInvalidParamsError("method and path parameters are required")
	}

	match, ok := s.router.Match(input.Method, input.Path)
	if !ok {
		return &MatchRouteOutput{Matched: false}, nil
	}
	return &MatchRouteOutput{
		Matched:        true,
		OperationID:    match.OperationID,
		Template:       match.Template,
		PathParameters: match.PathParameters,
	}, nil
}

// handleValidatePayload handles the validate_payload tool invocation.
func (s *Server) handleValidatePayload(_ context.Context, input ValidatePayloadInput) (*ValidatePayloadOutput, error) {
	if s.validator == nil {
		return nil, MapError(ErrNoDocument)
	}
	if input.Schema == "" {
		return nil, NewInvalidParamsError("schema parameter is required")
	}

	var value any
	if err := json.Unmarshal([]byte(input.Payload), &value); err != nil {
		return nil, NewInvalidParamsError(fmt.Sprintf("payload is not valid JSON: %v", err))
	}

	errs := s.validator.ValidateByName(input.Schema, value)
	out := &ValidatePayloadOutput{Valid: len(errs) == 0}
	for _, e := range errs {
		out.Issues = append(out.Issues, ValidationIssue{
			Kind:    string(e.Kind),
			Message: e.Message,
		})
	}
	return out, nil
}

// handleDetectCycles handles the detect_cycles tool invocation.
func (s *Server) handleDetectCycles(_ context.Context) (*DetectCyclesOutput, error) {
	start := time.Now()
	requestID := generateRequestID()

	cycles := cycle.Analyze(s.program)
	out := &DetectCyclesOutput{Cycles: make([]CycleReport, 0, len(cycles))}
	for _, c := range cycles {
		out.Cycles = append(out.Cycles, CycleReport{
			Path:        c.Path,
			FeatureSets: c.FeatureSets,
		})
	}

	s.logger.Info("detect_cycles completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("cycle_count", len(out.Cycles)))

	return out, nil
}

// handleProgramStatus handles the program_status tool invocation.
func (s *Server) handleProgramStatus(_ context.Context) (*ProgramStatusOutput, error) {
	out := &ProgramStatusOutput{
		FeatureSets: len(s.program.FeatureSets),
		HasOpenAPI:  s.doc != nil,
	}
	for _, fs := range s.program.FeatureSets {
		switch {
		case fs.IsEntryPoint():
			out.EntryPoints++
		case fs.IsHandler():
			out.Handlers++
		case fs.IsObserver():
			out.Observers++
		}
	}
	if s.doc != nil {
		out.Routes = len(s.doc.Routes)
	}
	return out, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	s.logger.Debug("Registering MCP tools")

	for _, t := range s.ListTools() {
		s.logger.Debug("Registered tool", slog.String("name", t.Name))
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "fold_expression",
		Description: s.toolDescription("fold_expression"),
	}, s.mcpFoldHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "match_route",
		Description: s.toolDescription("match_route"),
	}, s.mcpMatchRouteHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "validate_payload",
		Description: s.toolDescription("validate_payload"),
	}, s.mcpValidatePayloadHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "detect_cycles",
		Description: s.toolDescription("detect_cycles"),
	}, s.mcpDetectCyclesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "program_status",
		Description: s.toolDescription("program_status"),
	}, s.mcpProgramStatusHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", len(s.ListTools())))
}

func (s *Server) toolDescription(name string) string {
	for _, t := range s.ListTools() {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

// mcpFoldHandler is the MCP SDK handler for the fold_expression tool.
func (s *Server) mcpFoldHandler(ctx context.Context, _ *mcp.CallToolRequest, input FoldInput) (
	*mcp.CallToolResult,
	*FoldOutput,
	error,
) {
	out, err := s.handleFold(ctx, input)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// mcpMatchRouteHandler is the MCP SDK handler for the match_route tool.
func (s *Server) mcpMatchRouteHandler(ctx context.Context, _ *mcp.CallToolRequest, input MatchRouteInput) (
	*mcp.CallToolResult,
	*MatchRouteOutput,
	error,
) {
	out, err := s.handleMatchRoute(ctx, input)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// mcpValidatePayloadHandler is the MCP SDK handler for the validate_payload tool.
func (s *Server) mcpValidatePayloadHandler(ctx context.Context, _ *mcp.CallToolRequest, input ValidatePayloadInput) (
	*mcp.CallToolResult,
	*ValidatePayloadOutput,
	error,
) {
	out, err := s.handleValidatePayload(ctx, input)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// mcpDetectCyclesHandler is the MCP SDK handler for the detect_cycles tool.
func (s *Server) mcpDetectCyclesHandler(ctx context.Context, _ *mcp.CallToolRequest, _ DetectCyclesInput) (
	*mcp.CallToolResult,
	*DetectCyclesOutput,
	error,
) {
	out, err := s.handleDetectCycles(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// mcpProgramStatusHandler is the MCP SDK handler for the program_status tool.
func (s *Server) mcpProgramStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ProgramStatusInput) (
	*mcp.CallToolResult,
	*ProgramStatusOutput,
	error,
) {
	out, err := s.handleProgramStatus(ctx)
	if err != nil {
		return nil, nil, MapError(err)
	}
	return nil, out, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// literalToValue converts a folded literal into the plain Go value
// json.Marshal renders the way a client expects.
func literalToValue(lit ast.LiteralValue) any {
	switch lit.Kind {
	case ast.LitString:
		return lit.Str
	case ast.LitInteger:
		return lit.Int
	case ast.LitFloat:
		return lit.Float
	case ast.LitBoolean:
		return lit.Bool
	case ast.LitNull:
		return nil
	case ast.LitArray:
		arr := make([]any, len(lit.Array))
		for i, el := range lit.Array {
			arr[i] = literalToValue(el)
		}
		return arr
	case ast.LitObject:
		obj := make(map[string]any, len(lit.Object))
		for _, f := range lit.Object {
			obj[f.Key] = literalToValue(f.Value)
		}
		return obj
	case ast.LitRegex:
		return map[string]any{"pattern": lit.RegexPattern, "flags": lit.RegexFlags}
	default:
		return nil
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
