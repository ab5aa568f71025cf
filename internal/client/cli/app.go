package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/regflow/internal/client/client"
	"github.com/dmitrijs2005/regflow/internal/client/config"
	"github.com/dmitrijs2005/regflow/internal/client/directory"
	"github.com/dmitrijs2005/regflow/internal/client/federated"
	"github.com/dmitrijs2005/regflow/internal/client/models"
	"github.com/dmitrijs2005/regflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/regflow/internal/client/services"
	"github.com/dmitrijs2005/regflow/internal/client/storage"
	"github.com/dmitrijs2005/regflow/internal/client/verification"
	"github.com/dmitrijs2005/regflow/internal/logging"
)

const healthProbeTimeout = 3 * time.Second

// healthChecker is the part of the OTP client the status watcher uses.
type healthChecker interface {
	Health(ctx context.Context) error
}

type receiptLoader interface {
	Load(ctx context.Context) (*models.Receipt, error)
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	coord    *services.Coordinator
	health   healthChecker
	receipts receiptLoader
	closers  []io.Closer

	reader *bufio.Reader
	out    io.Writer
	outMu  sync.Mutex

	// async runs background requests; tests swap it for a synchronous call.
	async func(func())
	wg    sync.WaitGroup

	stateMu     sync.Mutex
	apiUp       *bool
	lastState   verification.State
	resendShown bool
}

// NewApp opens the local store and the directory and wires the services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	localDB, err := client.InitDatabase(ctx, c.LocalDBPath)
	if err != nil {
		return nil, fmt.Errorf("init local store: %w", err)
	}

	dirDB, err := directory.Open(ctx, c.DirectoryDSN)
	if err != nil {
		_ = localDB.Close()
		return nil, err
	}
	if err := directory.RunMigrations(ctx, dirDB); err != nil {
		_ = localDB.Close()
		_ = dirDB.Close()
		return nil, err
	}

	otp := client.NewHTTPClient(c.OTPBaseURL, c.RequestTimeout)
	dir := directory.NewPostgresRepository(dirDB)
	receipts := services.NewReceiptStore(metadata.NewSQLiteRepository(localDB))

	uploader := storage.NewS3Uploader(storage.Config{
		Bucket:        c.S3Bucket,
		Region:        c.S3Region,
		BaseEndpoint:  c.S3BaseEndpoint,
		AccessKey:     c.S3AccessKey,
		SecretKey:     c.S3SecretKey,
		PublicBaseURL: c.S3PublicBaseURL,
	}, nil, logger)

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithStrictDuplicateCheck(c.StrictDuplicateCheck),
		services.WithRequestTimeout(c.RequestTimeout),
		services.WithImageUploader(uploader),
		services.WithReceipts(receipts),
	}

	verifier, err := federated.NewVerifier(c.FederatedHMACSecret, c.FederatedPublicKeyFile, c.FederatedIssuer, c.FederatedAudience)
	switch {
	case err == nil:
		opts = append(opts, services.WithIdentityVerifier(verifier))
	case errors.Is(err, federated.ErrNotConfigured):
		logger.Debug(ctx, "federated sign-in disabled")
	default:
		_ = localDB.Close()
		_ = dirDB.Close()
		return nil, err
	}

	coord := services.NewCoordinator(dir, dir, otp, opts...)
	a := newApp(c, logger, coord, otp, receipts, bufio.NewReader(os.Stdin), os.Stdout)
	a.closers = []io.Closer{otp, dirDB, localDB}
	return a, nil
}

func newApp(c *config.Config, logger logging.Logger, coord *services.Coordinator, health healthChecker,
	receipts receiptLoader, in *bufio.Reader, out io.Writer) *App {
	a := &App{
		config:   c,
		logger:   logger,
		coord:    coord,
		health:   health,
		receipts: receipts,
		reader:   in,
		out:      out,
	}
	a.async = func(f func()) {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			f()
		}()
	}
	coord.OnEvent(a.onSessionEvent)
	return a
}

// Run starts the background workers and blocks in the REPL.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer a.close()
	defer a.wg.Wait()
	defer cancel()

	a.printf("Welcome to regflow (type 'help' for commands)\n")

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.HealthCheckInterval)
	}()
	go func() {
		defer workers.Done()
		a.coord.Run(ctx)
	}()

	runREPL(ctx, a, a.statusLine, a.reader)

	cancel()
	workers.Wait()
}

func (a *App) close() {
	a.coord.Abandon()
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// StartOnlineStatusWatcher probes the OTP API once immediately and then on
// every interval, printing a banner whenever reachability changes.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.probe(ctx)
	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	err := a.health.Health(pctx)
	cancel()
	if ctx.Err() != nil {
		return
	}
	a.setAPIStatus(err == nil)
}

func (a *App) setAPIStatus(up bool) {
	a.stateMu.Lock()
	changed := a.apiUp == nil || *a.apiUp != up
	first := a.apiUp == nil
	a.apiUp = &up
	a.stateMu.Unlock()

	if !changed {
		return
	}
	switch {
	case !up:
		a.printf("\n! Warning: the verification service is unreachable. Sending and verifying codes may fail.\n")
	case !first:
		a.printf("\nThe verification service is back online.\n")
	}
}

// onSessionEvent prints transitions that happen outside a command, such as
// the cooldown finishing.
func (a *App) onSessionEvent(ev verification.Event) {
	a.stateMu.Lock()
	announce := ev.State == verification.AwaitingCode && ev.ResendAllowed && ev.Cooldown == 0 &&
		a.lastState == verification.AwaitingCode && !a.resendShown
	if announce {
		a.resendShown = true
	}
	if !ev.ResendAllowed {
		a.resendShown = false
	}
	a.lastState = ev.State
	a.stateMu.Unlock()

	if announce {
		a.printf("\nYou can now request a new code with 'resend'.\n")
	}
}

func (a *App) statusLine() string {
	st := a.coord.Status()
	if st.Email == "" {
		return ""
	}
	s := a.coord.Session()
	switch {
	case st.EmailDuplicate:
		return "(" + st.Email + " taken)"
	case st.Federated:
		return "(" + st.Email + " federated)"
	case s == nil:
		return "(" + st.Email + ")"
	}
	ev := s.Snapshot()
	if ev.Cooldown > 0 {
		return fmt.Sprintf("(%s %s %ds)", st.Email, ev.State, ev.Cooldown)
	}
	return fmt.Sprintf("(%s %s)", st.Email, ev.State)
}
