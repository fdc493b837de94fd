package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/app/apptest"
	"live-trivia-service/internal/domain"
	pgstore "live-trivia-service/internal/infra/postgres"
	pgmigrations "live-trivia-service/internal/infra/postgres/migrations"
	infraredis "live-trivia-service/internal/infra/redis"
)

func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedBanks(t, ctx, pgURL, sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewBankLoader(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	banks := infraredis.NewBankRepository(redisClient, loader, 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	clk := clockwork.NewFakeClock()
	rec := apptest.NewRecorder()
	service := app.NewQuizService(sessions, banks, rec, app.Options{Clock: clk, DefaultBankID: "capitals"})

	sessionID, err := service.CreateSession(ctx, "admin", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if n, err := redisClient.Exists(ctx, "trivia:session:"+sessionID, "trivia:bank:capitals").Result(); err != nil || n != 2 {
		t.Fatalf("expected session marker and cached bank in redis, got %d (%v)", n, err)
	}

	if _, err := service.JoinSession(ctx, "c1", sessionID, "Alice"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.JoinSession(ctx, "c2", sessionID, "Bob"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := service.StartQuiz(ctx, "admin"); err != nil {
		t.Fatalf("start: %v", err)
	}

	for q := 1; q <= 2; q++ {
		if _, ok := rec.Wait(domain.EventNewQuestion, q, 2*time.Second); !ok {
			t.Fatalf("question %d never opened", q)
		}
		blockUntilTimer(t, clk)
		clk.Advance(time.Second)
		_ = service.SubmitAnswer(ctx, "c2", 0)
		_ = service.SubmitAnswer(ctx, "c1", 1)
		if _, ok := rec.Wait(domain.EventQuestionResults, q, 2*time.Second); !ok {
			t.Fatalf("question %d never settled", q)
		}
		blockUntilTimer(t, clk)
		clk.Advance(app.DefaultSettlePause)
	}

	end, ok := rec.Wait(domain.EventQuizEnd, 1, 2*time.Second)
	if !ok {
		t.Fatalf("quiz never ended")
	}
	standings := end[0].Event.Payload.(domain.QuizEndPayload).FinalStandings
	if len(standings) != 2 || standings[0].Name != "Bob" || standings[0].Score != 30 || standings[1].Score != 0 {
		t.Fatalf("unexpected standings %+v", standings)
	}

	service.Disconnect(ctx, "admin")
	if n, err := redisClient.Exists(ctx, "trivia:session:"+sessionID).Result(); err != nil || n != 0 {
		t.Fatalf("expected session marker removed, got %d (%v)", n, err)
	}
}

func blockUntilTimer(t *testing.T, clk *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clk.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("no timer armed: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "trivia", "POSTGRES_PASSWORD": "triviapass", "POSTGRES_DB": "triviadb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://trivia:triviapass@%s:%s/triviadb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// seedBanks runs migrations the way the migrate command does and upserts banks.
func seedBanks(t *testing.T, ctx context.Context, dsn string, banks ...domain.QuestionBank) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := pgstore.NewBankWriter(db).Upsert(ctx, banks...); err != nil {
		t.Fatalf("upsert banks: %v", err)
	}
	// Upserting again must replace rather than fail.
	if err := pgstore.NewBankWriter(db).Upsert(ctx, banks...); err != nil {
		t.Fatalf("re-upsert banks: %v", err)
	}
}

func sampleBank() domain.QuestionBank {
	return domain.QuestionBank{
		ID:    "capitals",
		Title: "Capitals",
		Questions: []domain.Question{
			{ID: 1, Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectIndex: 0},
			{ID: 2, Prompt: "Capital of Japan?", Options: []string{"Tokyo", "Osaka"}, CorrectIndex: 0},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
