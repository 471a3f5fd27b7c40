package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"todo-chat/app/models"
)

// Tool names.
const (
	ToolAddTask      = "add_task"
	ToolListTasks    = "list_tasks"
	ToolCompleteTask = "complete_task"
	ToolDeleteTask   = "delete_task"
	ToolUpdateTask   = "update_task"
)

// Tool describes one task operation and the JSON schema of its arguments.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`

	schema *jsonschema.Schema
}

var toolDefinitions = []struct {
	name, description, parameters string
}{
	{ToolAddTask, "Create a new task", `{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user ID"},
			"title": {"type": "string", "description": "The task title"},
			"description": {"type": "string", "description": "The task description (optional)"}
		},
		"required": ["user_id", "title"],
		"additionalProperties": false
	}`},
	{ToolListTasks, "Retrieve tasks from the list", `{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user ID"},
			"status": {"type": "string", "enum": ["all", "pending", "in_progress", "completed"],
				"description": "Filter tasks by status (optional)"}
		},
		"required": ["user_id"],
		"additionalProperties": false
	}`},
	{ToolCompleteTask, "Mark a task as complete", `{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user ID"},
			"task_id": {"type": "integer", "description": "The ID of the task to complete"}
		},
		"required": ["user_id", "task_id"],
		"additionalProperties": false
	}`},
	{ToolDeleteTask, "Remove a task from the list", `{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user ID"},
			"task_id": {"type": "integer", "description": "The ID of the task to delete"}
		},
		"required": ["user_id", "task_id"],
		"additionalProperties": false
	}`},
	{ToolUpdateTask, "Modify task title, description or status", `{
		"type": "object",
		"properties": {
			"user_id": {"type": "string", "description": "The user ID"},
			"task_id": {"type": "integer", "description": "The ID of the task to update"},
			"title": {"type": "string", "description": "The new task title (optional)"},
			"description": {"type": "string", "description": "The new task description (optional)"},
			"status": {"type": "string", "enum": ["pending", "in_progress", "completed"],
				"description": "The new task status (optional)"}
		},
		"required": ["user_id", "task_id"],
		"additionalProperties": false
	}`},
}

// compileTools builds the catalogue. The schemas are constants, so a failure
// is a programming error.
func compileTools() map[string]*Tool {
	tools := make(map[string]*Tool, len(toolDefinitions))
	compiler := jsonschema.NewCompiler()
	for _, def := range toolDefinitions {
		url := def.name + ".json"
		if err := compiler.AddResource(url, strings.NewReader(def.parameters)); err != nil {
			panic(fmt.Sprintf("tool %s: %v", def.name, err))
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("tool %s: %v", def.name, err))
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, []byte(def.parameters)); err != nil {
			panic(fmt.Sprintf("tool %s: %v", def.name, err))
		}
		tools[def.name] = &Tool{
			Name:        def.name,
			Description: def.description,
			Parameters:  compact.Bytes(),
			schema:      schema,
		}
	}
	return tools
}

// validate checks args against the tool schema and decodes them into dst.
func (t *Tool) validate(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("%w: %s arguments: %v", models.ErrValidation, t.Name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %s arguments: %v", models.ErrValidation, t.Name, err)
	}
	if err := t.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s arguments: %v", models.ErrValidation, t.Name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s arguments: %v", models.ErrValidation, t.Name, err)
	}
	return nil
}

// Catalogue returns the tool definitions sorted by name.
func Catalogue() []Tool {
	return sortedTools(compileTools())
}

func sortedTools(tools map[string]*Tool) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
