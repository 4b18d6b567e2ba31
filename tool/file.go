package tool

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AbhinavShaw09/agten/core"
)

// FileReadTool reads a file and returns its content with size metadata.
type FileReadTool struct{}

// NewFileReadTool constructs a FileReadTool.
func NewFileReadTool() *FileReadTool { return &FileReadTool{} }

// Name returns the tool identifier.
func (t *FileReadTool) Name() string { return "file_read" }

// Description returns the tool summary exposed to models.
func (t *FileReadTool) Description() string { return "Read file contents" }

// Parameters describes the accepted arguments.
func (t *FileReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read",
			},
		},
		"required": []string{"path"},
	}
}

// Execute reads the file named by the path argument.
func (t *FileReadTool) Execute(_ context.Context, args map[string]any, _ *core.AgentContext) (any, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, errors.New("file path is required")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	return map[string]any{
		"content": string(content),
		"size":    len(content),
		"path":    path,
	}, nil
}

// FileWriteTool writes content to a file, creating it when absent.
type FileWriteTool struct{}

// NewFileWriteTool constructs a FileWriteTool.
func NewFileWriteTool() *FileWriteTool { return &FileWriteTool{} }

// Name returns the tool identifier.
func (t *FileWriteTool) Name() string { return "file_write" }

// Description returns the tool summary exposed to models.
func (t *FileWriteTool) Description() string { return "Write content to a file" }

// Parameters describes the accepted arguments.
func (t *FileWriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write to the file",
			},
		},
		"required": []string{"path", "content"},
	}
}

// Execute writes the content argument to the file named by the path argument.
func (t *FileWriteTool) Execute(_ context.Context, args map[string]any, _ *core.AgentContext) (any, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, errors.New("file path is required")
	}
	content, _ := args["content"].(string)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file %s: %w", path, err)
	}

	return map[string]any{
		"path":    path,
		"size":    len(content),
		"success": true,
	}, nil
}
