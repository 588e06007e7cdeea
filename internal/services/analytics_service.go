package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

const trendDateLayout = "2006-01-02"

// ExportHeader is the fixed first row of the CSV export.
var ExportHeader = []string{"ID", "Title", "Description", "Status", "Priority", "Due Date", "Tags", "Created At", "Updated At"}

// AnalyticsService computes statistics over live tasks.
// Every method takes an optional assignee id; empty means all tasks.
type AnalyticsService struct {
	analytics repository.AnalyticsRepository
	userRepo  repository.UserRepository
	now       func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(analytics repository.AnalyticsRepository, userRepo repository.UserRepository) *AnalyticsService {
	return &AnalyticsService{
		analytics: analytics,
		userRepo:  userRepo,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Overview returns totals by status and priority and the number of overdue open tasks
func (s *AnalyticsService) Overview(ctx context.Context, assignee string) (*dto.OverviewDTO, error) {
	byStatus, err := s.analytics.CountByStatus(ctx, assignee)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	byPriority, err := s.analytics.CountByPriority(ctx, assignee)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by priority: %w", err)
	}
	dueDates, err := s.analytics.OpenDueDates(ctx, assignee)
	if err != nil {
		return nil, fmt.Errorf("failed to load due dates: %w", err)
	}

	overview := &dto.OverviewDTO{
		ByStatus:   make(map[string]int64, len(models.TaskStatuses)),
		ByPriority: make(map[string]int64, len(models.TaskPriorities)),
	}
	for _, st := range models.TaskStatuses {
		overview.ByStatus[string(st)] = 0
	}
	for _, p := range models.TaskPriorities {
		overview.ByPriority[string(p)] = 0
	}

	for _, row := range byStatus {
		overview.ByStatus[row.Key] += row.Count
		overview.Total += row.Count
	}
	for _, row := range byPriority {
		overview.ByPriority[row.Key] += row.Count
	}

	now := s.now()
	for _, due := range dueDates {
		if due.Before(now) {
			overview.Overdue++
		}
	}
	return overview, nil
}

// Performance returns completion counts and mean completion hours per assignee, busiest first
func (s *AnalyticsService) Performance(ctx context.Context, assignee string) ([]dto.PerformanceDTO, error) {
	rows, err := s.analytics.CompletedAssigned(ctx, assignee)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed tasks: %w", err)
	}

	type agg struct {
		count int64
		hours float64
	}
	byUser := make(map[string]*agg)
	ids := make([]string, 0)
	for _, row := range rows {
		a, ok := byUser[row.AssignedTo]
		if !ok {
			a = &agg{}
			byUser[row.AssignedTo] = a
			ids = append(ids, row.AssignedTo)
		}
		a.count++
		a.hours += row.UpdatedAt.Sub(row.CreatedAt).Hours()
	}

	results := []dto.PerformanceDTO{}
	if len(ids) == 0 {
		return results, nil
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignees: %w", err)
	}

	for _, id := range ids {
		a := byUser[id]
		results = append(results, dto.PerformanceDTO{
			UserID:            id,
			UserName:          users[id].Name,
			CompletedTasks:    a.count,
			AvgCompletionTime: math.Round(a.hours/float64(a.count)*10) / 10,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CompletedTasks != results[j].CompletedTasks {
			return results[i].CompletedTasks > results[j].CompletedTasks
		}
		if results[i].UserName != results[j].UserName {
			return results[i].UserName < results[j].UserName
		}
		return results[i].UserID < results[j].UserID
	})
	return results, nil
}

// Trends returns one entry per UTC day for today and the days-1 days before it, oldest first
func (s *AnalyticsService) Trends(ctx context.Context, assignee string, days int) ([]dto.TrendDTO, error) {
	if days == 0 {
		days = constants.DefaultTrendDays
	}
	if days < constants.MinTrendDays || days > constants.MaxTrendDays {
		return nil, apierrors.Validation(fmt.Sprintf("days must be between %d and %d", constants.MinTrendDays, constants.MaxTrendDays))
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -(days - 1))

	created, err := s.analytics.CreatedSince(ctx, assignee, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load created tasks: %w", err)
	}
	completed, err := s.analytics.CompletedSince(ctx, assignee, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed tasks: %w", err)
	}

	trends := make([]dto.TrendDTO, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(trendDateLayout)
		trends[i] = dto.TrendDTO{Date: date}
		index[date] = i
	}

	for _, t := range created {
		if i, ok := index[t.UTC().Format(trendDateLayout)]; ok {
			trends[i].Created++
		}
	}
	for _, t := range completed {
		if i, ok := index[t.UTC().Format(trendDateLayout)]; ok {
			trends[i].Completed++
		}
	}
	return trends, nil
}

// ExportCSV writes every live task, newest first, as CSV to w
func (s *AnalyticsService) ExportCSV(ctx context.Context, assignee string, w io.Writer) error {
	tasks, err := s.analytics.ExportTasks(ctx, assignee)
	if err != nil {
		return fmt.Errorf("failed to load tasks for export: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}
	for _, task := range tasks {
		if err := cw.Write(exportRow(task)); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRow(task models.Task) []string {
	description := ""
	if task.Description != nil {
		description = *task.Description
	}
	dueDate := ""
	if task.DueDate != nil {
		dueDate = task.DueDate.UTC().Format(time.RFC3339)
	}

	return []string{
		task.ID,
		task.Title,
		description,
		string(task.Status),
		string(task.Priority),
		dueDate,
		strings.Join(task.Tags, ", "),
		task.CreatedAt.UTC().Format(time.RFC3339),
		task.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
