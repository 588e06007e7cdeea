package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/sanitize"
)

// ChatCompleter is the part of the OpenAI client the AI service needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AIService struct {
	client ChatCompleter
	now    func() time.Time
}

// TaskDraft is a task extracted from free text. Drafts are never persisted.
type TaskDraft struct {
	Title       string
	Description *string
	Priority    models.TaskPriority
	DueDate     *time.Time
	Tags        []string
}

type generatedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

// NewAIService returns a service without a client when apiKey is empty.
func NewAIService(apiKey string) *AIService {
	if apiKey == "" {
		return NewAIServiceWithClient(nil)
	}
	return NewAIServiceWithClient(openai.NewClient(apiKey))
}

func NewAIServiceWithClient(client ChatCompleter) *AIService {
	return &AIService{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Configured reports whether an API key was supplied.
func (s *AIService) Configured() bool {
	return s.client != nil
}

// GenerateTasksFromText analyzes text and extracts task drafts using OpenAI GPT
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string) ([]TaskDraft, error) {
	if s.client == nil {
		return nil, ErrAIServiceNotConfigured
	}

	prompt := fmt.Sprintf(`You are a task extraction assistant. Extract concrete tasks from the text below.

Current time: %s

Text:
%s

Return a JSON array of tasks in this format:
[
  {
    "title": "short task title",
    "description": "task details",
    "priority": "LOW, MEDIUM or HIGH",
    "tags": ["tag"],
    "due_date": "deadline in ISO8601, e.g. 2025-10-28T23:59:59Z, or null when none is stated"
  }
]

Rules:
- Return an empty array [] when there are no tasks
- Convert relative deadlines such as "tomorrow" or "next week" to concrete timestamps
- due_date must be an ISO8601 string or null
- Return at most %d tasks
- Return JSON only, with no explanation`, s.now().Format(time.RFC3339), text, constants.MaxAIGeneratedTasks)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	var generated []generatedTask
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Choices[0].Message.Content)), &generated); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrAIUnavailable, err)
	}

	drafts := make([]TaskDraft, 0, len(generated))
	for _, g := range generated {
		if len(drafts) == constants.MaxAIGeneratedTasks {
			break
		}
		if d, ok := toDraft(g); ok {
			drafts = append(drafts, d)
		}
	}
	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	return drafts, nil
}

// toDraft sanitizes a generated task and drops it when no title survives.
func toDraft(g generatedTask) (TaskDraft, bool) {
	title := sanitize.String(g.Title)
	if title == "" {
		return TaskDraft{}, false
	}
	if r := []rune(title); len(r) > constants.MaxTitleLength {
		title = string(r[:constants.MaxTitleLength])
	}

	priority := models.TaskPriority(strings.ToUpper(strings.TrimSpace(g.Priority)))
	if !priority.Valid() {
		priority = models.TaskPriorityMedium
	}

	var dueDate *time.Time
	if g.DueDate != nil {
		d := g.DueDate.UTC()
		dueDate = &d
	}

	var description *string
	if d := sanitize.String(g.Description); d != "" {
		description = &d
	}

	return TaskDraft{
		Title:       title,
		Description: description,
		Priority:    priority,
		DueDate:     dueDate,
		Tags:        sanitize.Tags(g.Tags),
	}, true
}

// stripCodeFence removes a surrounding markdown code fence the model sometimes adds.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
