package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/testutil"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TaskRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	repo  TaskRepository
	ctx   context.Context
	alice *models.User
	bob   *models.User
}

func (suite *TaskRepositoryTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.repo = NewTaskRepository(suite.db)
	suite.ctx = context.Background()
	suite.alice = testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com")
	suite.bob = testutil.CreateUser(suite.T(), suite.db, "Bob", "bob@example.com")
}

func (suite *TaskRepositoryTestSuite) list(filter TaskFilter) ([]models.Task, int64) {
	if filter.Pagination.Limit == 0 {
		filter.Pagination = utils.NewPaginationParams(1, 100)
	}
	tasks, total, err := suite.repo.List(suite.ctx, filter)
	suite.Require().NoError(err)
	return tasks, total
}

func titles(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func (suite *TaskRepositoryTestSuite) TestCreateMany_PersistsTagsInOrder() {
	tasks := []*models.Task{
		{Title: "One", Status: models.TaskStatusTodo, Priority: models.TaskPriorityLow, CreatedBy: suite.alice.ID, Tags: []string{"b", "a"}},
		{Title: "Two", Status: models.TaskStatusTodo, Priority: models.TaskPriorityLow, CreatedBy: suite.alice.ID},
	}
	suite.Require().NoError(suite.repo.CreateMany(suite.ctx, tasks))
	suite.NotEmpty(tasks[0].ID)
	suite.NotEqual(tasks[0].ID, tasks[1].ID)

	got, err := suite.repo.FindLive(suite.ctx, tasks[0].ID)
	suite.Require().NoError(err)
	suite.Equal([]string{"b", "a"}, got.Tags)

	got, err = suite.repo.FindLive(suite.ctx, tasks[1].ID)
	suite.Require().NoError(err)
	suite.Equal([]string{}, got.Tags)
}

func (suite *TaskRepositoryTestSuite) TestFindLive_ExcludesSoftDeleted() {
	task := testutil.CreateTask(suite.T(), suite.db, "Gone", suite.alice.ID, testutil.Deleted())

	_, err := suite.repo.FindLive(suite.ctx, task.ID)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)

	found, err := suite.repo.FindAny(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.True(found.IsDeleted)
}

func (suite *TaskRepositoryTestSuite) TestList_ExcludesSoftDeleted() {
	testutil.CreateTask(suite.T(), suite.db, "Live", suite.alice.ID)
	testutil.CreateTask(suite.T(), suite.db, "Gone", suite.alice.ID, testutil.Deleted())

	tasks, total := suite.list(TaskFilter{})
	suite.Equal(int64(1), total)
	suite.Equal([]string{"Live"}, titles(tasks))
}

func (suite *TaskRepositoryTestSuite) TestList_StatusPriorityAssignee() {
	testutil.CreateTask(suite.T(), suite.db, "a", suite.alice.ID, testutil.WithStatus(models.TaskStatusDone), testutil.WithPriority(models.TaskPriorityHigh))
	testutil.CreateTask(suite.T(), suite.db, "b", suite.alice.ID, testutil.WithStatus(models.TaskStatusDone), testutil.WithAssignee(suite.bob.ID))
	testutil.CreateTask(suite.T(), suite.db, "c", suite.alice.ID, testutil.WithAssignee(suite.bob.ID))

	done := models.TaskStatusDone
	_, total := suite.list(TaskFilter{Status: &done})
	suite.Equal(int64(2), total)

	high := models.TaskPriorityHigh
	tasks, _ := suite.list(TaskFilter{Status: &done, Priority: &high})
	suite.Equal([]string{"a"}, titles(tasks))

	tasks, _ = suite.list(TaskFilter{AssignedTo: suite.bob.ID, SortBy: SortTitle, Order: "asc"})
	suite.Equal([]string{"b", "c"}, titles(tasks))
}

func (suite *TaskRepositoryTestSuite) TestList_SearchIsCaseInsensitiveSubstring() {
	testutil.CreateTask(suite.T(), suite.db, "Quarterly REPORT", suite.alice.ID)
	testutil.CreateTask(suite.T(), suite.db, "Groceries", suite.alice.ID, testutil.WithDescription("buy a report binder"))
	testutil.CreateTask(suite.T(), suite.db, "100% done", suite.alice.ID)
	testutil.CreateTask(suite.T(), suite.db, "1000 done", suite.alice.ID)

	tasks, total := suite.list(TaskFilter{Search: "report", SortBy: SortTitle, Order: "asc"})
	suite.Equal(int64(2), total)
	suite.Equal([]string{"Groceries", "Quarterly REPORT"}, titles(tasks))

	// wildcards in the search term are literal
	tasks, _ = suite.list(TaskFilter{Search: "0%"})
	suite.Equal([]string{"100% done"}, titles(tasks))
}

func (suite *TaskRepositoryTestSuite) TestList_TagsUseOverlap() {
	testutil.CreateTask(suite.T(), suite.db, "ab", suite.alice.ID, testutil.WithTags("a", "b"))
	testutil.CreateTask(suite.T(), suite.db, "c", suite.alice.ID, testutil.WithTags("c"))
	testutil.CreateTask(suite.T(), suite.db, "none", suite.alice.ID)

	tasks, total := suite.list(TaskFilter{Tags: []string{"b", "c"}, SortBy: SortTitle, Order: "asc"})
	suite.Equal(int64(2), total)
	suite.Equal([]string{"ab", "c"}, titles(tasks))
	suite.Equal([]string{"a", "b"}, tasks[0].Tags)

	_, total = suite.list(TaskFilter{Tags: []string{"x", "y"}})
	suite.Equal(int64(0), total)

	// matching ignores case and a task matching two tags is counted once
	_, total = suite.list(TaskFilter{Tags: []string{"A", "B"}})
	suite.Equal(int64(1), total)
}

func (suite *TaskRepositoryTestSuite) TestList_SortByEnumRank() {
	testutil.CreateTask(suite.T(), suite.db, "done", suite.alice.ID, testutil.WithStatus(models.TaskStatusDone), testutil.WithPriority(models.TaskPriorityLow))
	testutil.CreateTask(suite.T(), suite.db, "todo", suite.alice.ID, testutil.WithStatus(models.TaskStatusTodo), testutil.WithPriority(models.TaskPriorityHigh))
	testutil.CreateTask(suite.T(), suite.db, "doing", suite.alice.ID, testutil.WithStatus(models.TaskStatusInProgress), testutil.WithPriority(models.TaskPriorityMedium))

	tasks, _ := suite.list(TaskFilter{SortBy: SortStatus, Order: "asc"})
	suite.Equal([]string{"todo", "doing", "done"}, titles(tasks))

	tasks, _ = suite.list(TaskFilter{SortBy: SortPriority, Order: "desc"})
	suite.Equal([]string{"todo", "doing", "done"}, titles(tasks))
}

func (suite *TaskRepositoryTestSuite) TestList_DueDateKeepsNullsLast() {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	testutil.CreateTask(suite.T(), suite.db, "none", suite.alice.ID)
	testutil.CreateTask(suite.T(), suite.db, "late", suite.alice.ID, testutil.WithDueDate(base.Add(48*time.Hour)))
	testutil.CreateTask(suite.T(), suite.db, "soon", suite.alice.ID, testutil.WithDueDate(base))

	tasks, _ := suite.list(TaskFilter{SortBy: SortDueDate, Order: "asc"})
	suite.Equal([]string{"soon", "late", "none"}, titles(tasks))

	tasks, _ = suite.list(TaskFilter{SortBy: SortDueDate, Order: "desc"})
	suite.Equal([]string{"late", "soon", "none"}, titles(tasks))
}

func (suite *TaskRepositoryTestSuite) TestList_UnknownSortFallsBackToCreatedAt() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	testutil.CreateTask(suite.T(), suite.db, "old", suite.alice.ID, testutil.WithTimes(base, base))
	testutil.CreateTask(suite.T(), suite.db, "new", suite.alice.ID, testutil.WithTimes(base.Add(time.Hour), base.Add(time.Hour)))

	tasks, _ := suite.list(TaskFilter{SortBy: "password_hash"})
	suite.Equal([]string{"new", "old"}, titles(tasks))
}

func (suite *TaskRepositoryTestSuite) TestList_PagesCoverTotal() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		testutil.CreateTask(suite.T(), suite.db, "task", suite.alice.ID, testutil.WithTimes(ts, ts))
	}
	testutil.CreateTask(suite.T(), suite.db, "gone", suite.alice.ID, testutil.Deleted())

	seen := map[string]bool{}
	for page := 1; page <= 3; page++ {
		tasks, total := suite.list(TaskFilter{Pagination: utils.NewPaginationParams(page, 3)})
		suite.Equal(int64(7), total)
		for _, t := range tasks {
			seen[t.ID] = true
		}
		if page == 3 {
			suite.Len(tasks, 1)
		}
	}
	suite.Len(seen, 7)
}

func (suite *TaskRepositoryTestSuite) TestUpdate_WritesNullsAndReplaceTags() {
	task := testutil.CreateTask(suite.T(), suite.db, "t", suite.alice.ID,
		testutil.WithDescription("desc"), testutil.WithAssignee(suite.bob.ID), testutil.WithTags("x"))

	task.Description = nil
	task.AssignedTo = nil
	suite.Require().NoError(suite.repo.Update(suite.ctx, task))
	suite.Require().NoError(suite.repo.ReplaceTags(suite.ctx, task.ID, []string{"y", "z"}))

	got, err := suite.repo.FindLive(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Nil(got.Description)
	suite.Nil(got.AssignedTo)
	suite.Equal([]string{"y", "z"}, got.Tags)
}

func (suite *TaskRepositoryTestSuite) TestSoftDelete_KeepsRow() {
	task := testutil.CreateTask(suite.T(), suite.db, "t", suite.alice.ID)
	at := time.Now().UTC()

	suite.Require().NoError(suite.repo.SoftDelete(suite.ctx, task, at))

	var row models.Task
	suite.Require().NoError(suite.db.Where("id = ?", task.ID).First(&row).Error)
	suite.True(row.IsDeleted)
	suite.Require().NotNil(row.DeletedAt)
}

func TestTaskRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(TaskRepositoryTestSuite))
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 database.GormConfig("silent").Logger,
	})
	require.NoError(t, err)
	return db, mock
}

func TestTaskRepository_ListTagFilterUsesExistsSubquery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "tasks" WHERE tasks.is_deleted = \$1 AND EXISTS \(SELECT 1 FROM "task_tags" WHERE task_tags.task_id = tasks.id AND LOWER\(task_tags.value\) IN \(\$2,\$3\)\)`).
		WithArgs(false, "go", "gin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	tasks, total, err := repo.List(context.Background(), TaskFilter{
		Tags:       []string{"Go", "gin"},
		Pagination: utils.NewPaginationParams(1, 10),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, tasks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_ListPropagatesCountError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "tasks"`).WillReturnError(errors.New("connection reset"))

	_, _, err := repo.List(context.Background(), TaskFilter{Pagination: utils.NewPaginationParams(1, 10)})
	assert.EqualError(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderClauses(t *testing.T) {
	assert.Equal(t, []string{"tasks.created_at DESC", "tasks.id DESC"}, orderClauses("", ""))
	assert.Equal(t, []string{"tasks.title ASC", "tasks.id ASC"}, orderClauses(SortTitle, "ASC"))
	assert.Equal(t,
		[]string{"CASE tasks.status WHEN 'TODO' THEN 0 WHEN 'IN_PROGRESS' THEN 1 WHEN 'DONE' THEN 2 END DESC", "tasks.id DESC"},
		orderClauses(SortStatus, "desc"))
}
