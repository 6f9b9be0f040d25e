package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

// extractSystemPrompt instructs the model to extract only explicitly stated
// tasks. Inventing tasks is the main failure mode of naive prompts.
const extractSystemPrompt = `You are a task-extraction engine for a cognitive study scheduler.

Given a user's message, extract ONLY the tasks they EXPLICITLY mentioned.
Do NOT invent, assume, or add tasks the user did not clearly state.
Do NOT split a single task into sub-tasks unless the user listed them separately.

For each task provide:
  - title: concise name matching what the user said (e.g. "Study Calculus")
  - category: one of [math, science, programming, writing, reading, review, general]
  - difficulty: 1-10 estimate based on subject complexity
  - duration_minutes: from the text if specified, else 60

Rules:
  - "study calculus for 2 hours" is ONE task of 120 minutes.
  - "study X and finish Y" is TWO tasks, nothing more.
  - "plan my day" or any vague goal with no concrete task yields ZERO tasks.
  - Respond ONLY with a JSON object {"tasks": [...]}, no markdown fences, no prose.`

// OpenAIProvider parses tasks with a chat-completion model.
type OpenAIProvider struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIProvider builds a provider for the given API key. Model defaults
// to gpt-4o-mini when empty.
func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

type parsedTask struct {
	Title           string  `json:"title"`
	Category        string  `json:"category"`
	Difficulty      float64 `json:"difficulty"`
	DurationMinutes int     `json:"duration_minutes"`
}

type parsedTaskList struct {
	Tasks []parsedTask `json:"tasks"`
}

// ParseTasks runs the extraction prompt and decodes the JSON reply.
func (p *OpenAIProvider) ParseTasks(ctx context.Context, message string) ([]cogsched.Task, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractSystemPrompt),
			openai.UserMessage(message),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai completion: empty response")
	}
	return decodeTaskJSON(resp.Choices[0].Message.Content)
}

// decodeTaskJSON tolerates markdown fences and surrounding prose around the
// JSON payload.
func decodeTaskJSON(raw string) ([]cogsched.Task, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if start := strings.IndexByte(cleaned, '{'); start > 0 {
		cleaned = cleaned[start:]
	}
	if end := strings.LastIndexByte(cleaned, '}'); end >= 0 && end < len(cleaned)-1 {
		cleaned = cleaned[:end+1]
	}

	var list parsedTaskList
	if err := json.Unmarshal([]byte(cleaned), &list); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}

	tasks := make([]cogsched.Task, 0, len(list.Tasks))
	for _, pt := range list.Tasks {
		t := cogsched.Task{
			Title:           pt.Title,
			Category:        pt.Category,
			Difficulty:      pt.Difficulty,
			DurationMinutes: pt.DurationMinutes,
		}
		if t.Category == "" {
			t.Category = "general"
		}
		if t.Difficulty == 0 {
			t.Difficulty = 5
		}
		if t.DurationMinutes == 0 {
			t.DurationMinutes = 60
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
