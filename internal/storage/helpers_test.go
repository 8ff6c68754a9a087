package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/mindup/internal/migrations"
	"github.com/magabrotheeeer/mindup/internal/models"
)

// TestDataFactory создает тестовые данные напрямую через SQL.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает пользователя с ролью role и возвращает его UID.
func (f *TestDataFactory) CreateUser(t *testing.T, name string, role models.Role) string {
	t.Helper()
	uid := uuid.NewString()
	_, err := f.storage.DB.Exec(`INSERT INTO users (uid, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)`,
		uid, fmt.Sprintf("%s-%s@mindup.test", name, uid[:8]), "hash", name, role)
	require.NoError(t, err)
	return uid
}

// CreateAppointment создает запись на прием и возвращает её ID.
func (f *TestDataFactory) CreateAppointment(t *testing.T, patientUID, psychologistUID string, date time.Time,
	status models.AppointmentStatus) int64 {
	t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO appointments (patient_uid, psychologist_uid, date, status)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		patientUID, psychologistUID, date, status).Scan(&id)
	require.NoError(t, err)
	return id
}

// SoftDelete помечает запись удаленной.
func (f *TestDataFactory) SoftDelete(t *testing.T, id int64) {
	t.Helper()
	_, err := f.storage.DB.Exec(`UPDATE appointments SET soft_deleted_at = NOW() WHERE id = $1`, id)
	require.NoError(t, err)
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mindup"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, nat.Port("5432/tcp"))
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/mindup?sslmode=disable", host, port.Port())

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")
	t.Cleanup(func() { _ = storage.Close() })

	root, err := filepath.Abs("../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}
