package repository

import (
	"context"
	"errors"
	"testing"

	"EchoCanvas/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockLikeRepo(t *testing.T) (LikedSongRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	return NewGormLikedSongRepository(gdb), mock
}

var likeColumns = []string{"id", "user_id", "song_id", "source", "title"}

func toggleRequest() *model.ToggleLikeRequest {
	return &model.ToggleLikeRequest{SongID: "vid1", Title: "Song", Source: model.SongSourceYouTube}
}

func TestToggleLikeRecordsNewLike(t *testing.T) {
	repo, mock := newMockLikeRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `user_liked_songs`").
		WillReturnRows(sqlmock.NewRows(likeColumns))
	mock.ExpectExec("INSERT INTO `user_liked_songs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res, err := repo.ToggleLike(context.Background(), 1, toggleRequest())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Liked || res.SongID != "vid1" {
		t.Errorf("result = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestToggleLikeRemovesExistingLike(t *testing.T) {
	repo, mock := newMockLikeRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `user_liked_songs`").
		WillReturnRows(sqlmock.NewRows(likeColumns).AddRow(9, 1, "vid1", "youtube", "Song"))
	mock.ExpectExec("DELETE FROM `user_liked_songs`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.ToggleLike(context.Background(), 1, toggleRequest())
	if err != nil {
		t.Fatal(err)
	}
	if res.Liked {
		t.Errorf("result = %+v, want unliked", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestToggleLikeConcurrentInsertCountsAsLiked(t *testing.T) {
	repo, mock := newMockLikeRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `user_liked_songs`").
		WillReturnRows(sqlmock.NewRows(likeColumns))
	mock.ExpectExec("INSERT INTO `user_liked_songs`").
		WillReturnError(&mysql.MySQLError{Number: mysqlDuplicateEntry, Message: "Duplicate entry"})
	mock.ExpectCommit()

	res, err := repo.ToggleLike(context.Background(), 1, toggleRequest())
	if err != nil {
		t.Fatalf("duplicate insert surfaced as error: %v", err)
	}
	if !res.Liked {
		t.Errorf("result = %+v, want liked", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestToggleLikeOtherInsertErrorRollsBack(t *testing.T) {
	repo, mock := newMockLikeRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `user_liked_songs`").
		WillReturnRows(sqlmock.NewRows(likeColumns))
	mock.ExpectExec("INSERT INTO `user_liked_songs`").
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	if _, err := repo.ToggleLike(context.Background(), 1, toggleRequest()); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestToggleLikeValidatesBeforeQuerying(t *testing.T) {
	repo, mock := newMockLikeRepo(t)

	req := toggleRequest()
	req.Source = "spotify"
	if _, err := repo.ToggleLike(context.Background(), 1, req); !errors.Is(err, ErrInvalidLike) {
		t.Errorf("err = %v, want ErrInvalidLike", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
