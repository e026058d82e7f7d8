package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxassist/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// Doc generation needs no credentials; clients are only built on a tool call.
	serverContext, err := server.NewServerContext(context.Background(), server.Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	all, err := listTools(serverContext, false)
	if err != nil {
		return err
	}
	readOnly, err := listTools(serverContext, true)
	if err != nil {
		return err
	}
	writeTools := make(map[string]bool)
	for _, tool := range all {
		if !slices.ContainsFunc(readOnly, func(t mcp.Tool) bool { return t.Name == tool.Name }) {
			writeTools[tool.Name] = true
		}
	}

	markdown := generateToolsMarkdown(all, writeTools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

// listTools registers every tool group on a scratch server and returns the
// tool definitions.
func listTools(sc *server.ServerContext, readOnly bool) ([]mcp.Tool, error) {
	mcpSrv := mcpserver.NewMCPServer("inboxassist", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerAllTools(mcpSrv, sc, readOnly); err != nil {
		return nil, err
	}
	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

// toolCategories maps a tool name prefix to its section title.
var toolCategories = map[string]string{
	"gmail":    "Gmail Tools",
	"calendar": "Google Calendar Tools",
	"cache":    "Cache Tools",
	"google":   "Account Tools",
}

func getCategoryFromToolName(name string) string {
	prefix, _, _ := strings.Cut(name, "_")
	if category, ok := toolCategories[prefix]; ok {
		return category
	}
	return "Other"
}

func generateToolsMarkdown(tools []mcp.Tool, writeTools map[string]bool) string {
	var b strings.Builder

	b.WriteString("# MCP Tools Reference\n\n")
	b.WriteString("This document lists every tool available when running inboxassist as an MCP server.\n\n")
	b.WriteString("**Note:** This documentation is generated from the tool definitions by `inboxassist generate-docs`.\n\n")

	byCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		byCategory[category] = append(byCategory[category], tool)
	}
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	b.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&b, "- [%s](#%s)\n", category, anchor)
	}
	b.WriteString("\n")

	b.WriteString("## Accounts\n\n")
	b.WriteString("Every Google tool takes an optional `account` argument. Without it the `X-Account` request header is used, and then the `default` account.\n\n")

	b.WriteString("## Caching\n\n")
	b.WriteString("Email lists and searches are cached for 60 seconds, email details and calendar data for 5 minutes. ")
	b.WriteString("Writes drop the affected entries. When Google cannot be reached after retrying, the last cached answer is returned and marked as possibly outdated.\n\n")

	if len(writeTools) > 0 {
		b.WriteString("## Write Tools\n\n")
		b.WriteString("Tools marked **write** are only registered when the server runs with `--yolo`.\n\n")
	}

	for _, category := range categories {
		categoryTools := byCategory[category]
		slices.SortFunc(categoryTools, func(a, c mcp.Tool) int {
			return strings.Compare(a.Name, c.Name)
		})

		fmt.Fprintf(&b, "## %s\n\n", category)
		for _, tool := range categoryTools {
			writeToolMarkdown(&b, tool, writeTools[tool.Name])
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeToolMarkdown(b *strings.Builder, tool mcp.Tool, write bool) {
	if write {
		fmt.Fprintf(b, "### %s (write)\n\n", tool.Name)
	} else {
		fmt.Fprintf(b, "### %s\n\n", tool.Name)
	}

	if tool.Description != "" {
		fmt.Fprintf(b, "%s\n\n", tool.Description)
	}

	if len(tool.InputSchema.Properties) == 0 {
		return
	}

	b.WriteString("**Arguments:**\n")
	names := make([]string, 0, len(tool.InputSchema.Properties))
	for name := range tool.InputSchema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := tool.InputSchema.Properties[name].(map[string]any)
		if !ok {
			continue
		}
		requirement := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			requirement = "required"
		}
		desc, _ := prop["description"].(string)
		if desc == "" {
			desc = propertyType(prop) + " parameter"
		}
		fmt.Fprintf(b, "- `%s` (%s): %s\n", name, requirement, desc)
	}
	b.WriteString("\n")
}

func propertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
