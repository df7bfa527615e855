package pg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/oshokin/pgxn-client/internal/executor"
	"github.com/oshokin/pgxn-client/internal/logger"
)

// ConnectionOptions carries the connection parameters for psql.
// Empty fields are omitted, leaving psql to its usual defaults.
type ConnectionOptions struct {
	DBName   string
	Host     string
	Port     string
	Username string
}

// Argv returns the psql command line flags for the connection.
func (o ConnectionOptions) Argv() []string {
	var argv []string

	if o.DBName != "" {
		argv = append(argv, "-d", o.DBName)
	}

	if o.Host != "" {
		argv = append(argv, "-h", o.Host)
	}

	if o.Port != "" {
		argv = append(argv, "-p", o.Port)
	}

	if o.Username != "" {
		argv = append(argv, "-U", o.Username)
	}

	return argv
}

// Env returns the connection parameters as PG* environment entries,
// for programs reaching the server through libpq rather than psql.
func (o ConnectionOptions) Env() []string {
	var env []string

	if o.DBName != "" {
		env = append(env, "PGDATABASE="+o.DBName)
	}

	if o.Host != "" {
		env = append(env, "PGHOST="+o.Host)
	}

	if o.Port != "" {
		env = append(env, "PGPORT="+o.Port)
	}

	if o.Username != "" {
		env = append(env, "PGUSER="+o.Username)
	}

	return env
}

// Psql drives the psql executable of an installation.
type Psql struct {
	inst   *Installation
	runner executor.Runner
	conn   ConnectionOptions
}

// NewPsql creates a Psql bound to the given installation and connection.
func NewPsql(inst *Installation, runner executor.Runner, conn ConnectionOptions) *Psql {
	return &Psql{
		inst:   inst,
		runner: runner,
		conn:   conn,
	}
}

// Query runs a single SQL command and returns its output in
// tuples-only unaligned format.
func (p *Psql) Query(ctx context.Context, command string) (string, error) {
	program, err := p.inst.PsqlPath(ctx)
	if err != nil {
		return "", err
	}

	argv := append([]string{program}, p.conn.Argv()...)
	argv = append(argv, "-tA", "-c", command)

	var out bytes.Buffer

	err = p.runner.Run(ctx, executor.Cmd{
		Argv:   argv,
		Stdout: &out,
	})
	if err != nil {
		return "", fmt.Errorf("run query: %w", err)
	}

	return out.String(), nil
}

// ExecuteFile feeds a SQL script file to psql on standard input.
func (p *Psql) ExecuteFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	return p.execute(ctx, f)
}

// ExecuteSQL feeds a SQL string to psql on standard input.
func (p *Psql) ExecuteSQL(ctx context.Context, sql string) error {
	return p.execute(ctx, strings.NewReader(sql))
}

// ServerVersion asks the server for its version and parses it.
func (p *Psql) ServerVersion(ctx context.Context) (*semver.Version, error) {
	out, err := p.Query(ctx, "SELECT version();")
	if err != nil {
		return nil, err
	}

	v, err := ParseServerVersion(out)
	if err != nil {
		return nil, err
	}

	logger.Debugf(ctx, "PostgreSQL version: %s", v)

	return v, nil
}

func (p *Psql) execute(ctx context.Context, stdin io.Reader) error {
	program, err := p.inst.PsqlPath(ctx)
	if err != nil {
		return err
	}

	argv := append([]string{program}, p.conn.Argv()...)

	err = p.runner.Run(ctx, executor.Cmd{
		Argv:  argv,
		Stdin: stdin,
	})
	if err != nil {
		return fmt.Errorf("run script: %w", err)
	}

	return nil
}

// QuoteIdentifier renders a name for safe interpolation into a SQL
// statement as an identifier.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
