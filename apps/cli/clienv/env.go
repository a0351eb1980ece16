// Package clienv resolves the settings and local collaborators shared by CLI commands.
//
// Settings come from persistent flags, then REPORTS_* environment variables, then defaults.
package clienv

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/client"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/draft"
	"github.com/zenGate-Global/palmyra-reports/platform/go/identity"
	"github.com/zenGate-Global/palmyra-reports/platform/go/localstate"
	platformlogging "github.com/zenGate-Global/palmyra-reports/platform/go/logging"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

// ErrNotSignedIn is returned by commands that need a remembered tenant email.
var ErrNotSignedIn = errors.New("not signed in; run `reports session login <email>` first")

const (
	keyAPIURL      = "api-url"
	keyStateFile   = "state-file"
	keyDatabaseURL = "database-url"
	keyLogLevel    = "log-level"
	keyTimeout     = "timeout"
)

// Env is created once per process and handed to every command constructor.
type Env struct {
	v          *viper.Viper
	httpClient *http.Client
	logOutput  io.Writer

	mu     sync.Mutex
	state  *localstate.Store
	logger *zap.Logger
}

// New returns an Env reading REPORTS_* environment variables.
func New() *Env {
	v := viper.New()
	v.SetEnvPrefix("REPORTS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyAPIURL, "http://localhost:3000")
	v.SetDefault(keyStateFile, defaultStateFile())
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyTimeout, 30*time.Second)

	return &Env{v: v, logOutput: os.Stderr}
}

// Bind registers the persistent flags on root and binds them to the Env.
func (e *Env) Bind(root *cobra.Command) error {
	flags := root.PersistentFlags()
	flags.String(keyAPIURL, e.v.GetString(keyAPIURL), "report schedules API base URL (REPORTS_API_URL)")
	flags.String(keyStateFile, e.v.GetString(keyStateFile), "local state file (REPORTS_STATE_FILE)")
	flags.String(keyDatabaseURL, "", "PostgreSQL connection string for migrate (REPORTS_DATABASE_URL)")
	flags.String(keyLogLevel, e.v.GetString(keyLogLevel), "log level: debug, info, warn, error (REPORTS_LOG_LEVEL)")
	flags.Duration(keyTimeout, e.v.GetDuration(keyTimeout), "HTTP request timeout (REPORTS_TIMEOUT)")

	return e.v.BindPFlags(flags)
}

// SetHTTPClient overrides the client used to reach the API.
func (e *Env) SetHTTPClient(c *http.Client) {
	e.httpClient = c
}

// SetLogOutput redirects CLI logs.
func (e *Env) SetLogOutput(w io.Writer) {
	e.logOutput = w
}

func (e *Env) APIURL() string      { return e.v.GetString(keyAPIURL) }
func (e *Env) DatabaseURL() string { return e.v.GetString(keyDatabaseURL) }

// State opens the local state file once.
func (e *Env) State() (*localstate.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != nil {
		return e.state, nil
	}
	store, err := localstate.Open(e.v.GetString(keyStateFile))
	if err != nil {
		return nil, err
	}
	e.state = store
	return store, nil
}

func (e *Env) Identity() (*identity.Store, error) {
	state, err := e.State()
	if err != nil {
		return nil, err
	}
	return identity.New(state), nil
}

func (e *Env) Drafts() (*draft.Cache, error) {
	state, err := e.State()
	if err != nil {
		return nil, err
	}
	return draft.New(state)
}

// Session returns the remembered tenant session or ErrNotSignedIn.
func (e *Env) Session() (tenant.Session, error) {
	ids, err := e.Identity()
	if err != nil {
		return tenant.Session{}, err
	}
	session, ok, err := ids.Session()
	if err != nil {
		return tenant.Session{}, err
	}
	if !ok {
		return tenant.Session{}, ErrNotSignedIn
	}
	return session, nil
}

// Client builds an API client acting as session.
func (e *Env) Client(session tenant.Session) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL:     e.APIURL(),
		TenantEmail: session.Email,
		Timeout:     e.v.GetDuration(keyTimeout),
		HTTPClient:  e.httpClient,
	})
}

// Logger builds the console logger once.
func (e *Env) Logger() *zap.Logger {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.logger != nil {
		return e.logger
	}
	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "cli",
		Level:     e.v.GetString(keyLogLevel),
		Format:    platformlogging.FormatConsole,
		Output:    e.logOutput,
	})
	if err != nil {
		fmt.Fprintf(e.logOutput, "invalid log level, logging disabled: %v\n", err)
		logger = zap.NewNop()
	}
	e.logger = logger
	return logger
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".palmyra-reports.yaml"
	}
	return filepath.Join(dir, "palmyra-reports", "state.yaml")
}
