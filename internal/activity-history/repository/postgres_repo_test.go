package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/radieske/bankroll-challenges/pkg/contracts/events"
)

func newMock(t *testing.T) (*PostgresRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewPostgresRepo(db), mock
}

var occurred = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func TestInsertActivity(t *testing.T) {
	r, mock := newMock(t)
	a := events.Activity{
		EventID: "e1", Kind: events.KindBetResultSet, ChallengeID: "c1", BetID: "b1", UserID: "u1",
		OldResult: "pending", NewResult: "won", Stake: "100", Odds: "1.85", Payout: "185.00", Profit: "85.00",
		OccurredAt: occurred,
	}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (event_id) DO NOTHING")).
		WithArgs("e1", "bet_result_set", "c1",
			sql.NullString{String: "b1", Valid: true}, "u1",
			sql.NullString{}, sql.NullString{String: "pending", Valid: true}, sql.NullString{String: "won", Valid: true},
			sql.NullString{String: "100", Valid: true}, sql.NullString{String: "1.85", Valid: true},
			sql.NullString{String: "185.00", Valid: true}, sql.NullString{String: "85.00", Valid: true},
			occurred).
		WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := r.InsertActivity(context.Background(), a)
	if err != nil || !inserted {
		t.Fatalf("expected insert, got %v %v", inserted, err)
	}
}

func TestInsertActivity_Duplicate(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO challenge_activity")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := r.InsertActivity(context.Background(), events.Activity{EventID: "e1", OccurredAt: occurred})
	if err != nil || inserted {
		t.Fatalf("duplicate must be a no-op, got %v %v", inserted, err)
	}
}

func TestInsertActivity_Error(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO challenge_activity")).
		WillReturnError(errors.New("connection reset"))

	if _, err := r.InsertActivity(context.Background(), events.Activity{EventID: "e1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestMigrate(t *testing.T) {
	r, mock := newMock(t)
	for range schema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := r.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}
