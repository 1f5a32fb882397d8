package cmd

import (
	"context"
	"encoding/json"

	"github.com/habiliai/agentmemory"
	"github.com/habiliai/agentmemory/memory"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const mcpServerVersion = "0.1.0"

func newMCPCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the memory tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := openEngine(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeEngine(engine)

			return mcpserver.ServeStdio(newMCPServer(engine))
		},
	}
}

func newMCPServer(engine *agentmemory.Engine) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("agentmemory", mcpServerVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("process_and_chat",
			mcp.WithDescription("Process a user message: store the facts it shares, answer questions about the user from memory, or reply to small talk."),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("The user the message belongs to")),
			mcp.WithString("message", mcp.Required(), mcp.Description("The user's message")),
			mcp.WithString("conversation_id", mcp.Description("Conversation the message belongs to")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			userID, err := req.RequireString("user_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			message, err := req.RequireString("message")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			resp := engine.ProcessAndChat(ctx, userID, message, agentmemory.WithConversationID(req.GetString("conversation_id", "")))
			return toolResultJSON(resp)
		},
	)

	s.AddTool(
		mcp.NewTool("search_memories",
			mcp.WithDescription("Search the memories stored about a user."),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("The user whose memories are searched")),
			mcp.WithString("query", mcp.Required(), mcp.Description("What to look for")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (at most 20)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			userID, err := req.RequireString("user_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			query, err := req.RequireString("query")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			results, err := engine.SearchMemories(ctx, userID, query, req.GetInt("limit", 0))
			if err != nil {
				return mcp.NewToolResultErrorFromErr("failed to search memories", err), nil
			}
			return toolResultJSON(results)
		},
	)

	s.AddTool(
		mcp.NewTool("list_memories",
			mcp.WithDescription("List the memories stored about a user, most recent first."),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("The user whose memories are listed")),
			mcp.WithString("category", mcp.Description("Only list this category"), mcp.Enum("preference", "tool", "personal", "work", "other")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of memories")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			userID, err := req.RequireString("user_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			opts := []agentmemory.ListOption{agentmemory.WithLimit(req.GetInt("limit", 0))}
			if category := req.GetString("category", ""); category != "" {
				opts = append(opts, agentmemory.WithCategory(memory.Category(category)))
			}
			records, err := engine.ListMemories(ctx, userID, opts...)
			if err != nil {
				return mcp.NewToolResultErrorFromErr("failed to list memories", err), nil
			}
			return toolResultJSON(records)
		},
	)

	s.AddTool(
		mcp.NewTool("forget_memories",
			mcp.WithDescription("Delete every memory of a user that contains the given text."),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("The user whose memories are deleted")),
			mcp.WithString("content", mcp.Required(), mcp.Description("Text the memories to delete contain")),
			mcp.WithString("reason", mcp.Description("Why the memories are deleted")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			userID, err := req.RequireString("user_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			content, err := req.RequireString("content")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			deleted, err := engine.ForgetMemories(ctx, userID, content, req.GetString("reason", ""))
			if err != nil {
				return mcp.NewToolResultErrorFromErr("failed to forget memories", err), nil
			}
			return toolResultJSON(deleted)
		},
	)

	return s
}

func toolResultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
