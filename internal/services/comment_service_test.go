package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/testutil"
	"gorm.io/gorm"
)

type CommentServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ctx     context.Context
	service *CommentService
	alice   *models.User
	bob     *models.User
	task    *models.Task
}

func (suite *CommentServiceTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.ctx = context.Background()
	suite.service = NewCommentService(
		repository.NewTaskRepository(suite.db),
		repository.NewCommentRepository(suite.db),
		repository.NewUserRepository(suite.db),
	)
	suite.alice = testutil.CreateUser(suite.T(), suite.db, "Alice", "alice@example.com")
	suite.bob = testutil.CreateUser(suite.T(), suite.db, "Bob", "bob@example.com")
	suite.task = testutil.CreateTask(suite.T(), suite.db, "Discuss", suite.alice.ID)
}

func (suite *CommentServiceTestSuite) TestCreateAndList() {
	first, err := suite.service.CreateComment(suite.ctx, suite.bob, suite.task.ID, "<p>First</p>")
	suite.Require().NoError(err)
	suite.Equal("First", first.Content)
	suite.Equal("Bob", first.User.Name)

	_, err = suite.service.CreateComment(suite.ctx, suite.alice, suite.task.ID, "Second")
	suite.Require().NoError(err)

	comments, err := suite.service.ListComments(suite.ctx, suite.task.ID)
	suite.Require().NoError(err)
	suite.Require().Len(comments, 2)
	suite.Equal("First", comments[0].Content)
	suite.Equal("Bob", comments[0].User.Name)
	suite.Equal("Alice", comments[1].User.Name)
}

func (suite *CommentServiceTestSuite) TestCreate_ValidatesContent() {
	_, err := suite.service.CreateComment(suite.ctx, suite.bob, suite.task.ID, "<p> <br/> </p>")
	suite.Equal(ErrCommentContentRequired, err)

	_, err = suite.service.CreateComment(suite.ctx, suite.bob, suite.task.ID, strings.Repeat("a", 5001))
	suite.Equal(ErrCommentTooLong, err)
}

func (suite *CommentServiceTestSuite) TestCreate_UnknownTask() {
	_, err := suite.service.CreateComment(suite.ctx, suite.bob, "00000000-0000-0000-0000-000000000000", "Hi")
	suite.Equal(ErrTaskNotFound, err)
}

func (suite *CommentServiceTestSuite) TestSoftDeletedTask_ListStillWorksCreateDoesNot() {
	_, err := suite.service.CreateComment(suite.ctx, suite.bob, suite.task.ID, "Before delete")
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.Model(&models.Task{}).Where("id = ?", suite.task.ID).Update("is_deleted", true).Error)

	comments, err := suite.service.ListComments(suite.ctx, suite.task.ID)
	suite.Require().NoError(err)
	suite.Len(comments, 1)

	_, err = suite.service.CreateComment(suite.ctx, suite.bob, suite.task.ID, "After delete")
	suite.Equal(ErrTaskNotFound, err)
}

func (suite *CommentServiceTestSuite) TestUpdate_AuthorOnly() {
	comment, err := suite.service.CreateComment(suite.ctx, suite.bob, suite.task.ID, "Draft")
	suite.Require().NoError(err)

	_, err = suite.service.UpdateComment(suite.ctx, suite.alice, suite.task.ID, comment.ID, "Edited by owner of task")
	suite.Equal(ErrCommentUpdateForbidden, err)

	updated, err := suite.service.UpdateComment(suite.ctx, suite.bob, suite.task.ID, comment.ID, "<b>Final</b>")
	suite.Require().NoError(err)
	suite.Equal("Final", updated.Content)
}

func (suite *CommentServiceTestSuite) TestUpdate_CommentOfOtherTask() {
	other := testutil.CreateTask(suite.T(), suite.db, "Other", suite.alice.ID)
	comment, err := suite.service.CreateComment(suite.ctx, suite.bob, other.ID, "Elsewhere")
	suite.Require().NoError(err)

	_, err = suite.service.UpdateComment(suite.ctx, suite.bob, suite.task.ID, comment.ID, "Moved")
	suite.Equal(ErrCommentNotFound, err)
}

func (suite *CommentServiceTestSuite) TestDelete_AuthorOnly() {
	comment, err := suite.service.CreateComment(suite.ctx, suite.bob, suite.task.ID, "Bye")
	suite.Require().NoError(err)

	suite.Equal(ErrCommentDeleteForbidden, suite.service.DeleteComment(suite.ctx, suite.alice, suite.task.ID, comment.ID))
	suite.Require().NoError(suite.service.DeleteComment(suite.ctx, suite.bob, suite.task.ID, comment.ID))
	suite.Equal(ErrCommentNotFound, suite.service.DeleteComment(suite.ctx, suite.bob, suite.task.ID, comment.ID))
}

func TestCommentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(CommentServiceTestSuite))
}
