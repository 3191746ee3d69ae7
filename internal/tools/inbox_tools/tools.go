package inbox_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/inbox"
	"github.com/teemow/inboxassist/internal/instrumentation"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/server"
	"github.com/teemow/inboxassist/internal/tools/batch"
	"github.com/teemow/inboxassist/internal/tools/common"
)

// RegisterInboxTools registers the inbox tools with the MCP server.
func RegisterInboxTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool("inbox_list_messages",
		mcp.WithDescription("List one page of the Gmail inbox, newest first. Messages whose details could not be loaded are reported under 'dropped'."),
		mcp.WithNumber("pageSize",
			mcp.Description(fmt.Sprintf("Messages per page (default: %d, max: %d)", gmail.DefaultPageSize, gmail.MaxPageSize)),
		),
		mcp.WithString("pageToken",
			mcp.Description("Token from a previous call's nextPageToken to fetch the next page"),
		),
		mcp.WithString("filter",
			mcp.Description("Which messages to show: all, important or unread (default: all)"),
			mcp.Enum(string(inbox.FilterAll), string(inbox.FilterImportant), string(inbox.FilterUnread)),
		),
		mcp.WithString("query",
			mcp.Description("Case-insensitive text matched against sender, subject and snippet"),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandlerWithService("inbox_list_messages",
		instrumentation.ServiceGmail, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMessages(ctx, request, sc)
		}))

	contentTool := mcp.NewTool("inbox_get_message_content",
		mcp.WithDescription("Get the renderable HTML body of one or more messages"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs"),
		),
	)
	s.AddTool(contentTool, common.InstrumentedToolHandlerWithService("inbox_get_message_content",
		instrumentation.ServiceGmail, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetMessageContent(ctx, request, sc)
		}))

	statusTool := mcp.NewTool("inbox_gmail_status",
		mcp.WithDescription("Report whether a Gmail account is connected"),
	)
	s.AddTool(statusTool, common.InstrumentedToolHandler("inbox_gmail_status", sc,
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGmailStatus(ctx, sc)
		}))

	return nil
}

func handleListMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	pageSize := 0
	if v, ok := args["pageSize"].(float64); ok {
		pageSize = int(v)
	}
	pageToken, _ := args["pageToken"].(string)
	query, _ := args["query"].(string)
	filterArg, _ := args["filter"].(string)

	mode, err := inbox.ParseFilterMode(filterArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page, err := sc.Inbox().List(ctx, inbox.ListRequest{
		PageSize:  pageSize,
		PageToken: pageToken,
		Filter:    inbox.Filter{Mode: mode, Query: query},
	})
	if err != nil {
		sc.Logger().Warn("inbox listing failed", logging.Operation("tool.inbox_list_messages"), logging.Err(err))
		return common.ErrorResult(err), nil
	}
	if page.Messages == nil {
		page.Messages = []gmail.DisplayMessage{}
	}

	b, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func handleGetMessageContent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	ids, err := batch.ParseStringOrArray(request.GetArguments()["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(ids) == 1 {
		content, err := sc.Inbox().Message(ctx, ids[0])
		if err != nil {
			sc.Logger().Warn("message content failed",
				logging.Operation("tool.inbox_get_message_content"),
				logging.MessageID(ids[0]),
				logging.Err(err))
			return common.ErrorResult(err), nil
		}
		return mcp.NewToolResultText(content.Renderable()), nil
	}

	results := batch.Process(ctx, ids, gmail.DefaultMaxConcurrency, func(ctx context.Context, id string) (string, error) {
		content, err := sc.Inbox().Message(ctx, id)
		if err != nil {
			return "", fmt.Errorf("%s: %w", common.UserMessage(err), err)
		}
		return content.Renderable(), nil
	})
	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleGmailStatus(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	resolver := sc.Resolver()
	if resolver == nil {
		return mcp.NewToolResultError("connection status is not available"), nil
	}
	connected, err := resolver.Connected(ctx)
	if err != nil {
		return common.ErrorResult(err), nil
	}
	if connected {
		return mcp.NewToolResultText("Gmail is connected."), nil
	}
	return mcp.NewToolResultText(common.MsgNotConnected), nil
}
