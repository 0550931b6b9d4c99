package bootstrap

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/fjstoneservices/site-api/internal/config"
	"github.com/fjstoneservices/site-api/internal/notify"
	"github.com/fjstoneservices/site-api/internal/storage"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

func testAWSConfig() aws.Config {
	return aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("test", "test", ""),
	}
}

func TestBuildRedisClientDisabled(t *testing.T) {
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Discard(), true))
	assert.Nil(t, BuildRedisClient(context.Background(), nil, logging.Discard(), true))
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.Discard(), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logging.Discard(), true))
}

func TestBuildRateLimiterMemory(t *testing.T) {
	rl, err := BuildRateLimiter(&appconfig.Config{
		RateLimitBackend:     "memory",
		QuoteRateLimitMax:    2,
		QuoteRateLimitWindow: time.Minute,
	}, nil, logging.Discard())
	require.NoError(t, err)
	assert.Len(t, rl.Memory, 2)
	assert.Equal(t, "memory", rl.Backend)

	ctx := context.Background()
	assert.True(t, rl.Quotes.Allow(ctx, "203.0.113.1"))
	assert.True(t, rl.Quotes.Allow(ctx, "203.0.113.1"))
	assert.False(t, rl.Quotes.Allow(ctx, "203.0.113.1"))
	// Download counters are separate from the quote budget.
	assert.True(t, rl.Download.Allow(ctx, "203.0.113.1"))
}

func TestBuildRateLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{
		RedisAddr:            mr.Addr(),
		RateLimitBackend:     "redis",
		QuoteRateLimitMax:    1,
		QuoteRateLimitWindow: time.Minute,
	}
	client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	rl, err := BuildRateLimiter(cfg, client, logging.Discard())
	require.NoError(t, err)
	assert.Empty(t, rl.Memory)
	assert.True(t, rl.Quotes.Allow(context.Background(), "198.51.100.7"))
	assert.False(t, rl.Quotes.Allow(context.Background(), "198.51.100.7"))
	assert.True(t, rl.Download.Allow(context.Background(), "198.51.100.7"))

	_, err = BuildRateLimiter(cfg, nil, logging.Discard())
	assert.Error(t, err)
}

func TestBuildObjectStoreBackends(t *testing.T) {
	local, err := BuildObjectStore(&appconfig.Config{
		StorageBackend:       "local",
		LocalStorageDir:      t.TempDir(),
		PublicBaseURL:        "https://example.com",
		StorageSigningSecret: "secret",
	}, aws.Config{}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStore{}, local.Store)
	assert.NotNil(t, local.Download)
	assert.NoError(t, VerifyStorage(context.Background(), local))

	mem, err := BuildObjectStore(&appconfig.Config{StorageBackend: "memory", PublicBaseURL: "http://localhost:8080"}, aws.Config{}, logging.Discard())
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, mem.Store)
	require.NotNil(t, mem.Download)
	require.NoError(t, mem.Store.Put(context.Background(), storage.PutObjectInput{Path: "lead-1/a.jpg", Body: strings.NewReader("jpg")}))
	link, err := mem.Store.SignedURL(context.Background(), "lead-1/a.jpg", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://localhost:8080/files/"), link)

	s3Store, err := BuildObjectStore(&appconfig.Config{
		StorageBackend:      "s3",
		QuoteUploadsBucket:  "quote-uploads",
		AWSEndpointOverride: "http://localhost:4566",
	}, testAWSConfig(), logging.Discard())
	require.NoError(t, err)
	assert.NotNil(t, s3Store.S3)
	assert.Nil(t, s3Store.Download)

	_, err = BuildObjectStore(&appconfig.Config{StorageBackend: "ftp"}, aws.Config{}, logging.Discard())
	assert.Error(t, err)
}

func TestBuildEmailSender(t *testing.T) {
	sender, provider, err := BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid", EmailFrom: "quotes@example.com"}, aws.Config{}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "disabled", provider)
	assert.Nil(t, sender)

	sender, provider, err = BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.key", EmailFrom: "quotes@example.com"}, aws.Config{}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "sendgrid", provider)
	assert.IsType(t, &notify.SendGridSender{}, sender)

	// A missing key disables email in production too; leads stay in the admin area.
	sender, provider, err = BuildEmailSender(&appconfig.Config{Env: "production", EmailProvider: "sendgrid"}, aws.Config{}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "disabled", provider)
	assert.Nil(t, sender)
	notifier := notify.NewQuoteNotifier(sender, []string{"owner@example.com"}, notify.EmailOptions{}, logging.Discard())
	assert.False(t, notifier.Enabled())
	assert.ErrorIs(t, notifier.Send(context.Background(), notify.QuoteEmail{RequestID: "lead-1"}), notify.ErrEmailDisabled)

	sender, provider, err = BuildEmailSender(&appconfig.Config{EmailProvider: "log"}, aws.Config{}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "log", provider)
	assert.IsType(t, &notify.StubEmailSender{}, sender)

	_, _, err = BuildEmailSender(&appconfig.Config{Env: "production", EmailProvider: "log"}, aws.Config{}, logging.Discard())
	assert.Error(t, err)

	sender, provider, err = BuildEmailSender(&appconfig.Config{EmailProvider: "ses", EmailFrom: "quotes@example.com"}, testAWSConfig(), logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "ses", provider)
	assert.IsType(t, &notify.SESSender{}, sender)
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	assert.Nil(t, ConnectPostgresPool(context.Background(), "", logging.Discard()))
}

func TestOpenStaffDBRequiresURL(t *testing.T) {
	_, err := OpenStaffDB(context.Background(), "", " ")
	assert.Error(t, err)
}

func TestReadyCheckWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.Discard(), false)
	t.Cleanup(func() { _ = client.Close() })

	check := ReadyCheck(nil, nil, client)
	req := httptest.NewRequest("GET", "/ready", nil)
	assert.NoError(t, check(req))

	mr.Close()
	assert.Error(t, check(req))
}

func TestBackgroundWaitsForTasks(t *testing.T) {
	bg := NewBackground(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	var stopped atomic.Int32
	for i := 0; i < 3; i++ {
		bg.Go(ctx, "sweep", func(ctx context.Context) {
			<-ctx.Done()
			stopped.Add(1)
		})
	}
	bg.Go(ctx, "boom", func(context.Context) { panic("boom") })

	cancel()
	assert.True(t, bg.Wait(time.Second))
	assert.Equal(t, int32(3), stopped.Load())
}

func TestBackgroundWaitTimesOut(t *testing.T) {
	bg := NewBackground(logging.Discard())
	release := make(chan struct{})
	bg.Go(context.Background(), "stuck", func(context.Context) { <-release })

	assert.False(t, bg.Wait(10*time.Millisecond))
	close(release)
	assert.True(t, bg.Wait(time.Second))
}
