package test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/segmentio/kafka-go"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joao-fontenele/storefront-checkout/internal/journal"
	"github.com/joao-fontenele/storefront-checkout/internal/messaging"
	"github.com/joao-fontenele/storefront-checkout/internal/telemetry"
)

// JournalStore is a migrated journal database in a throwaway container.
type JournalStore struct {
	DB   *sql.DB
	Repo *journal.OutcomeRepository
}

// SetupJournalStore starts Postgres, applies the journal migrations and opens
// a traced handle. Everything is torn down with the test.
func SetupJournalStore(ctx context.Context, t *testing.T) *JournalStore {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("journal"),
		postgres.WithUsername("journal"),
		postgres.WithPassword("journal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := migrateJournal(dsn); err != nil {
		t.Fatalf("failed to migrate journal: %v", err)
	}

	db, err := telemetry.OpenPostgres(dsn)
	if err != nil {
		t.Fatalf("failed to open journal database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to reach journal database: %v", err)
	}

	return &JournalStore{DB: db, Repo: journal.NewOutcomeRepository(db)}
}

func migrateJournal(dsn string) error {
	m, err := migrate.New(migrationsURL(), dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Down and up again so both directions stay runnable.
	if err := m.Down(); err != nil {
		return fmt.Errorf("revert migrations: %w", err)
	}
	if err := m.Up(); err != nil {
		return fmt.Errorf("reapply migrations: %w", err)
	}

	return nil
}

func migrationsURL() string {
	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Dir(filepath.Dir(filename))
	return "file://" + filepath.Join(root, "migrations")
}

// OutcomeBus is a single-broker Kafka with the outcome topic created up front.
type OutcomeBus struct {
	Brokers []string
	Topic   string
}

func SetupOutcomeBus(ctx context.Context, t *testing.T, topic string) *OutcomeBus {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		tckafka.WithClusterID("storefront-test"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	if err := messaging.EnsureTopic(ctx, brokers[0], topic, 3); err != nil {
		t.Fatalf("failed to create topic %s: %v", topic, err)
	}

	return &OutcomeBus{Brokers: brokers, Topic: topic}
}

func (b *OutcomeBus) Producer(t *testing.T) *messaging.Producer {
	t.Helper()
	p := messaging.NewProducer(b.Brokers, b.Topic)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func (b *OutcomeBus) Consumer(t *testing.T, groupID string) *messaging.Consumer {
	t.Helper()
	c := messaging.NewConsumer(b.Brokers, b.Topic, groupID,
		messaging.WithStartOffset(kafka.FirstOffset),
		messaging.WithMaxWait(250*time.Millisecond),
	)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// WaitForOutcome polls the journal until the checkout shows up or timeout
// passes.
func WaitForOutcome(ctx context.Context, t *testing.T, repo *journal.OutcomeRepository, checkoutID string, timeout time.Duration) *journal.Outcome {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		outcome, err := repo.GetByID(ctx, checkoutID)
		if err != nil {
			t.Fatalf("failed to query journal: %v", err)
		}
		if outcome != nil {
			return outcome
		}
		time.Sleep(250 * time.Millisecond)
	}

	t.Fatalf("checkout %s never reached the journal", checkoutID)
	return nil
}
