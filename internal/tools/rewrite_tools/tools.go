package rewrite_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/rewrite"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/common"
)

// RegisterRewriteTools registers the rewrite tools with the MCP server.
func RegisterRewriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	polishTool := mcp.NewTool("rewrite_polish",
		mcp.WithDescription("Fix grammar, spelling and punctuation of a draft while keeping its meaning"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Draft text to polish"),
		),
	)
	s.AddTool(polishTool, common.InstrumentedToolHandlerWithService("rewrite_polish",
		instrumentation.ServiceRewrite, "polish", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handlePolish(ctx, request, sc)
		}))

	toneTool := mcp.NewTool("rewrite_change_tone",
		mcp.WithDescription("Rewrite a draft in a professional or friendly tone"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Draft text to rewrite"),
		),
		mcp.WithString("tone",
			mcp.Required(),
			mcp.Description("Target tone"),
			mcp.Enum(string(rewrite.ToneProfessional), string(rewrite.ToneFriendly)),
		),
	)
	s.AddTool(toneTool, common.InstrumentedToolHandlerWithService("rewrite_change_tone",
		instrumentation.ServiceRewrite, "change_tone", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleChangeTone(ctx, request, sc)
		}))

	return nil
}

func handlePolish(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	text, ok := request.GetArguments()["text"].(string)
	if !ok || text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}

	out, err := sc.Rewriter().Polish(ctx, text)
	if err != nil {
		sc.Logger().Warn("polish failed", logging.Operation("tool.rewrite_polish"), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func handleChangeTone(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text, ok := args["text"].(string)
	if !ok || text == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	toneArg, _ := args["tone"].(string)
	tone, err := rewrite.ParseTone(toneArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := sc.Rewriter().ChangeTone(ctx, text, tone)
	if err != nil {
		sc.Logger().Warn("tone change failed", logging.Operation("tool.rewrite_change_tone"), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	return mcp.NewToolResultText(out), nil
}
