// authzctl checks a principal against the identity directory without a
// live session. It answers the same question the gateway asks per call:
//
//	authzctl --principal 42 --operation push-queue
//	authzctl --principal 5b0e...c1 --permission call-details
//
// It prints "allowed" or "denied: <reason>" and exits 1 on denial.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/Ashwin12159/Control-Plane/config"
	"github.com/Ashwin12159/Control-Plane/internal/observability"
	"github.com/Ashwin12159/Control-Plane/repositories/postgres"
	"github.com/Ashwin12159/Control-Plane/services/authz"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Exit codes
const (
	exitAllowed = 0
	exitDenied  = 1
	exitError   = 2
)

// openDirectory connects to the identity directory. The returned func releases it.
type openDirectory func(ctx context.Context, databaseURL string, logger *zap.Logger) (authz.IdentityDirectory, func() error, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, openPostgres)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, open openDirectory) int {
	var (
		principal   string
		operation   string
		permission  string
		databaseURL string
		unmapped    string
		timeout     time.Duration
		verbose     bool
	)

	flagSet := pflag.NewFlagSet("authzctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&principal, "principal", "", "principal id (user uuid or numeric id)")
	flagSet.StringVar(&operation, "operation", "", "gateway operation name, e.g. push-queue")
	flagSet.StringVar(&permission, "permission", "", "permission name, e.g. rabbitmq")
	flagSet.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "identity directory connection string")
	flagSet.StringVar(&unmapped, "unmapped", "deny", "policy for operations without a permission mapping (deny or allow)")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "lookup timeout")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log directory lookups to stderr")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitAllowed
		}
		return exitError
	}

	if err := validateFlags(principal, operation, permission, databaseURL, unmapped); err != nil {
		fmt.Fprintf(stderr, "authzctl: %v\n", err)
		flagSet.PrintDefaults()
		return exitError
	}

	logger := zap.NewNop()
	if verbose {
		l, err := observability.NewLogger("debug", "console")
		if err != nil {
			fmt.Fprintf(stderr, "authzctl: %v\n", err)
			return exitError
		}
		logger = l
		defer func() { _ = logger.Sync() }()
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	directory, closeDirectory, err := open(ctx, databaseURL, logger)
	if err != nil {
		fmt.Fprintf(stderr, "authzctl: %v\n", err)
		return exitError
	}
	defer func() { _ = closeDirectory() }()

	engine := authz.NewEngine(authz.DefaultOperationPermissions(), authz.UnmappedPolicy(unmapped), logger)
	authorizer := authz.NewDirectoryAuthorizer(engine, directory, logger)

	var decision authz.Decision
	if operation != "" {
		decision, err = authorizer.AuthorizeOperation(ctx, principal, operation)
	} else {
		decision, err = authorizer.Authorize(ctx, principal, permission)
	}
	if err != nil {
		fmt.Fprintf(stderr, "authzctl: %v\n", err)
		return exitError
	}

	if !decision.Allowed {
		fmt.Fprintf(stdout, "denied: %s\n", decision.Reason)
		return exitDenied
	}
	fmt.Fprintln(stdout, "allowed")
	return exitAllowed
}

func validateFlags(principal, operation, permission, databaseURL, unmapped string) error {
	switch {
	case principal == "":
		return errors.New("--principal is required")
	case operation == "" && permission == "":
		return errors.New("one of --operation or --permission is required")
	case operation != "" && permission != "":
		return errors.New("--operation and --permission are mutually exclusive")
	case databaseURL == "":
		return errors.New("--database-url or DATABASE_URL is required")
	case unmapped != string(authz.UnmappedDeny) && unmapped != string(authz.UnmappedAllow):
		return fmt.Errorf("--unmapped must be deny or allow, got %q", unmapped)
	}
	return nil
}

func openPostgres(ctx context.Context, databaseURL string, logger *zap.Logger) (authz.IdentityDirectory, func() error, error) {
	db, err := postgres.NewDB(config.DatabaseConfig{
		ConnectionString: databaseURL,
		MaxOpenConns:     2,
		MaxIdleConns:     1,
		ConnMaxLifetime:  time.Minute,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewUserRepository(db, logger), db.Close, nil
}
