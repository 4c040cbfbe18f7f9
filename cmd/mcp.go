package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fraudlens/internal/analysis"
	"github.com/KaramelBytes/fraudlens/internal/classifier"
	"github.com/KaramelBytes/fraudlens/internal/dataset"
	"github.com/KaramelBytes/fraudlens/internal/utils"
)

const scoreToolName = "score_job_listings"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the scoring pipeline as an MCP tool over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		holder, err := loadHolder(cmdContext(cmd), c)
		if err != nil {
			return err
		}
		opt := analysis.Options{TopN: c.TopN, Bins: c.HistBins, Dataset: dataset.DefaultOptions()}
		s := newMCPServer(holder, opt)
		if err := server.ServeStdio(s); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}

func newMCPServer(holder *classifier.Holder, opt analysis.Options) *server.MCPServer {
	s := server.NewMCPServer("fraudlens", "1.0.0")

	tool := mcp.NewTool(scoreToolName,
		mcp.WithDescription("Score every job listing in a CSV file for fraud and return a Markdown report"),
	)
	tool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"csv_path":    map[string]interface{}{"type": "string", "description": "Path to a CSV file with a description column"},
			"output_path": map[string]interface{}{"type": "string", "description": "Optional path for the annotated results CSV"},
		},
		Required: []string{"csv_path"},
	}
	s.AddTool(tool, scoreListingsHandler(holder, opt))
	return s
}

func scoreListingsHandler(holder *classifier.Holder, opt analysis.Options) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		path, _ := args["csv_path"].(string)
		outPath, _ := args["output_path"].(string)
		if path == "" {
			return mcp.NewToolResultError("missing required field: csv_path"), nil
		}

		clf, err := holder.Classifier()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Model unavailable: %v", err)), nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read %s: %v", path, err)), nil
		}
		o := opt
		o.Dataset.Delimiter = dataset.DelimiterFor(path)
		rep, err := analysis.NewPipeline(clf, o, slog.Default()).Run(ctx, path, data)
		if err != nil {
			return mcp.NewToolResultError(analysis.UserMessage(err)), nil
		}
		if outPath != "" {
			if err := utils.SafeWriteFile(outPath, rep.CSV); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to write results: %v", err)), nil
			}
		}
		text := rep.Markdown()
		if outPath != "" {
			text += fmt.Sprintf("\nResults written to %s\n", outPath)
		}
		return mcp.NewToolResultText(text), nil
	}
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
