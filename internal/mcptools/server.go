// Package mcptools exposes form extraction and filling as MCP tools over
// stdio, for use from editor assistants and scripting hosts.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tributolabs/formfill/internal/config"
	"github.com/tributolabs/formfill/internal/form"
	"github.com/tributolabs/formfill/internal/form/extract"
	"github.com/tributolabs/formfill/internal/form/fill"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	extractor *extract.Extractor
	filler    *fill.Filler
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config) (*Server, error) {
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		extractor: extract.NewExtractor(),
		filler:    fill.NewFiller(),
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	formExtractTool := mcp.NewTool(
		"form_extract_file",
		mcp.WithDescription("Extract the fillable form fields of a PDF file, with labels, kinds, options and any values already present"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(formExtractTool, s.handleFormExtractFile)

	formFillTool := mcp.NewTool(
		"form_fill_file",
		mcp.WithDescription("Fill the form fields of a PDF file and write the result to a new file"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Full path for the filled PDF"),
		),
		mcp.WithString("values",
			mcp.Required(),
			mcp.Description(`JSON object mapping field names (or canonical keys like "fullName") to values`),
		),
	)
	s.mcpServer.AddTool(formFillTool, s.handleFormFillFile)

	formFlattenTool := mcp.NewTool(
		"form_flatten_file",
		mcp.WithDescription("Flatten a PDF form so its fields can no longer be edited, writing the result to a new file"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("output",
			mcp.Required(),
			mcp.Description("Full path for the flattened PDF"),
		),
	)
	s.mcpServer.AddTool(formFlattenTool, s.handleFormFlattenFile)

	formSniffTool := mcp.NewTool(
		"form_sniff_file",
		mcp.WithDescription("Inspect the page text of a PDF without fillable fields for visual form patterns (checkbox marks, underline runs, labeled colons)"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(formSniffTool, s.handleFormSniffFile)
}

// Handler functions
func (s *Server) handleFormExtractFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.extractor.Extract(data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatExtractResult(path, result)), nil
}

func (s *Server) handleFormFillFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	valuesJSON, err := request.RequireString("values")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var values form.ValueSet
	if err := json.Unmarshal([]byte(valuesJSON), &values); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("values must be a JSON object of strings: %v", err)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.extractor.Extract(data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	filled, err := s.filler.Fill(data, result.Catalog, result.Catalog.ResolveValues(values))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := os.WriteFile(output, filled, 0o600); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Filled %d value(s) into %s\n", len(values), path)
	responseText += fmt.Sprintf("Output: %s (%d bytes)\n", output, len(filled))
	if missing := result.Catalog.RequiredMissing(values); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, fd := range missing {
			names = append(names, fd.Name)
		}
		responseText += fmt.Sprintf("Required fields still empty: %s\n", strings.Join(names, ", "))
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleFormFlattenFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := request.RequireString("output")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	flattened, err := s.filler.Flatten(data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := os.WriteFile(output, flattened, 0o600); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Flattened %s\n", path)
	responseText += fmt.Sprintf("Output: %s (%d bytes)\n", output, len(flattened))
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleFormSniffFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	hints := extract.SniffFieldPatterns(data)

	responseText := fmt.Sprintf("Visual form patterns in %s\n", path)
	responseText += fmt.Sprintf("Pages inspected: %d\n", hints.PagesInspected)
	responseText += fmt.Sprintf("Checkbox marks: %d\n", hints.CheckboxMarks)
	responseText += fmt.Sprintf("Underline runs: %d\n", hints.UnderlineRuns)
	responseText += fmt.Sprintf("Labeled colons: %d\n", hints.LabeledColons)
	if hints.LooksLikeForm() {
		responseText += "\nThis document looks like a printed form without fillable fields. It cannot be filled programmatically.\n"
	}

	return mcp.NewToolResultText(responseText), nil
}

// Formatting methods
func (s *Server) formatExtractResult(path string, result *extract.Result) string {
	text := fmt.Sprintf("Form fields in %s: %d\n", path, result.Catalog.Len())

	for i, fd := range result.Catalog.Fields {
		text += fmt.Sprintf("\n%d. %s (%s)\n", i+1, fd.Name, fd.Kind)
		text += fmt.Sprintf("   Label: %s / %s\n", fd.Label.EN, fd.Label.ES)
		if fd.Required {
			text += "   Required: yes\n"
		}
		if fd.CanonicalKey != "" {
			text += fmt.Sprintf("   Canonical key: %s\n", fd.CanonicalKey)
		}
		if len(fd.Options) > 0 {
			text += fmt.Sprintf("   Options: %s\n", strings.Join(fd.Options, ", "))
		}
	}

	if len(result.ExtractedData) > 0 {
		text += "\nValues already present:\n"
		encoded, _ := json.MarshalIndent(result.ExtractedData, "", "  ")
		text += string(encoded) + "\n"
	}

	return text
}

// Run starts the MCP server over stdio.
func (s *Server) Run(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting form MCP server in stdio mode")
		log.Printf("Template directory: %s", s.config.TemplateDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
