package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"goldroom/internal/domain"
	"goldroom/internal/infrastructure/storage"
)

func newMockRepo(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS state_kv").WillReturnResult(sqlmock.NewResult(0, 0))
	repo, err := NewWithDB(db)
	if err != nil {
		t.Fatalf("NewWithDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return repo, mock
}

func TestPostgresRepoLoadState(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"key", "value"}).
		AddRow(storage.KeyLimitBulan, "14").
		AddRow(storage.KeyUsdHistory, `[{"price":"16.250","time":"08:00:00"}]`)
	mock.ExpectQuery("SELECT key, value FROM state_kv").WillReturnRows(rows)

	st, err := repo.LoadState(context.Background())
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st.LimitBulan == nil || *st.LimitBulan != 14 {
		t.Errorf("limit = %v", st.LimitBulan)
	}
	if len(st.UsdHistory) != 1 || st.UsdHistory[0].Price != "16.250" {
		t.Errorf("usd = %+v", st.UsdHistory)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepoSaveState(t *testing.T) {
	repo, mock := newMockRepo(t)

	limit := 8
	mock.ExpectBegin()
	for _, k := range storage.Keys {
		mock.ExpectExec("INSERT INTO state_kv").
			WithArgs(k, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if err := repo.SaveState(context.Background(), &domain.PersistedState{LimitBulan: &limit}); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepoSaveStateRollback(t *testing.T) {
	repo, mock := newMockRepo(t)

	boom := errors.New("connection reset")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO state_kv").WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.SaveState(context.Background(), &domain.PersistedState{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
