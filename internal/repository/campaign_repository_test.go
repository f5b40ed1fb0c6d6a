package repository

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duenorth/reminder-backend/internal/model"
)

func TestCreatePlanCommitsCampaignAndSendsTogether(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &CampaignRepository{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO campaigns").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO email_sends").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO email_sends").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := &model.Campaign{ID: "camp-1", CompanyID: "co-1", Provider: "primary", RecipientCount: 2}
	sends := []*model.EmailSend{
		{ID: "send-1", RecipientEmail: "a@example.com"},
		{ID: "send-2", RecipientEmail: "b@example.com"},
	}

	require.NoError(t, repo.CreatePlan(c, sends))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, model.SendQueued, sends[0].Status)
	assert.Equal(t, model.SendQueued, sends[1].Status)
}

func TestCreatePlanRollsBackWhenASendInsertFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &CampaignRepository{DB: db}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO campaigns").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO email_sends").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO email_sends").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	c := &model.Campaign{ID: "camp-1", CompanyID: "co-1", Provider: "primary", RecipientCount: 2}
	sends := []*model.EmailSend{
		{ID: "send-1", RecipientEmail: "a@example.com"},
		{ID: "send-2", RecipientEmail: "b@example.com"},
	}

	err = repo.CreatePlan(c, sends)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCampaignStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &CampaignRepository{DB: db}

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("sent", 3).
		AddRow("failed", 2)
	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs("camp-1").
		WillReturnRows(rows)

	stats, err := repo.GetCampaignStats("camp-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats["sent"])
	assert.Equal(t, 2, stats["failed"])
	assert.Equal(t, 0, stats["queued"])
}
