// Package scan runs one table scan against a remote API as a lazy,
// pull-based row iterator. A scan session resolves the credential, builds
// the HTTP client, compiles the column plan, and splits predicates between
// the remote and local evaluation; no network traffic happens until the
// first row is pulled.
//
// The iterator holds one page in memory at a time and yields rows in
// remote page and record order. It satisfies the pgx CopyFromSource
// contract (Next, Values, Err), so a scan can stream straight into a
// warehouse table. Iterators are single-use: after Done or Failed they
// stay exhausted, and a fresh scan needs a fresh session.
package scan

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"rowbridge/cli/internal/credential"
	"rowbridge/cli/internal/pushdown"
	"rowbridge/cli/internal/remote"
	"rowbridge/cli/internal/schema"
	"rowbridge/cli/internal/wrapper"
)

// State names the iterator's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateYielding
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateYielding:
		return "yielding"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Config describes one scan session.
type Config struct {
	// ServerName keys the credential cache and log lines.
	ServerName string
	// Wrapper is the vendor adapter for the server.
	Wrapper wrapper.Wrapper
	// ServerOpts and TableOpts are the raw definition options; Begin
	// validates them and applies rule defaults.
	ServerOpts map[string]string
	TableOpts  map[string]string
	// Columns are the declared columns of the table.
	Columns []schema.Column
	// Resolver supplies the bearer credential.
	Resolver *credential.Resolver
	// Quals are the query predicates, split between remote and local.
	Quals []pushdown.Qual
	// Projection lists requested column names; empty means all declared.
	Projection []string
	// Limit stops the scan after this many rows; zero means no limit.
	Limit int64
	// UserAgent identifies this build in request headers.
	UserAgent string
}

// Begin prepares a scan session: definition validation, credential
// resolution, client construction, plan compilation, predicate split.
// It performs no page fetch; the first Next does.
func Begin(ctx context.Context, cfg Config) (*Iterator, error) {
	serverOpts, err := cfg.Wrapper.ServerRules().Apply(cfg.ServerOpts)
	if err != nil {
		return nil, err
	}
	tableOpts, err := cfg.Wrapper.TableRules().Apply(cfg.TableOpts)
	if err != nil {
		return nil, err
	}

	plan, err := schema.Compile(cfg.Columns, func(col schema.Column) (schema.Extractor, error) {
		return cfg.Wrapper.ResolveColumn(tableOpts, col)
	})
	if err != nil {
		return nil, err
	}

	cred, err := cfg.Resolver.Resolve(ctx, cfg.ServerName, credential.Reference{
		Literal: serverOpts["api_key"],
		KeyID:   serverOpts["api_key_id"],
	})
	if err != nil {
		return nil, err
	}

	var timeout time.Duration
	if t := serverOpts["timeout"]; t != "" {
		timeout, err = time.ParseDuration(t)
		if err != nil {
			return nil, err
		}
	}
	client, err := remote.NewClient(remote.Config{
		BaseURL:    cfg.Wrapper.BaseURL(serverOpts),
		Credential: cred,
		Timeout:    timeout,
		UserAgent:  cfg.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	pageSize, err := strconv.Atoi(serverOpts["page_size"])
	if err != nil {
		return nil, fmt.Errorf("page_size: %w", err)
	}

	push := pushdown.Split(cfg.Quals, cfg.Projection, cfg.Wrapper.Capability(tableOpts))

	colIndex := make(map[string]int, len(plan.Columns()))
	for i, col := range plan.Columns() {
		colIndex[col.Name] = i
	}

	return &Iterator{
		ctx:       ctx,
		server:    cfg.ServerName,
		w:         cfg.Wrapper,
		client:    client,
		plan:      plan,
		push:      push,
		tableOpts: tableOpts,
		pageSize:  pageSize,
		limit:     cfg.Limit,
		colIndex:  colIndex,
	}, nil
}

// Iterator pulls rows one at a time. Not safe for concurrent use; run
// concurrent scans on separate iterators.
type Iterator struct {
	ctx       context.Context
	server    string
	w         wrapper.Wrapper
	client    *remote.Client
	plan      *schema.Plan
	push      pushdown.Plan
	tableOpts map[string]string
	pageSize  int
	limit     int64
	colIndex  map[string]int

	state   State
	page    *wrapper.Page
	idx     int
	cursor  string
	fetched bool
	pages   int
	row     []any
	yielded int64
	err     error
	closed  bool
}

// Columns returns the planned columns in declaration order.
func (it *Iterator) Columns() []schema.Column { return it.plan.Columns() }

// State reports the iterator's lifecycle position.
func (it *Iterator) State() State { return it.state }

// Next advances to the next row. It returns false when the scan is
// exhausted or failed; Err distinguishes the two.
func (it *Iterator) Next() bool {
	if it.state == StateDone || it.state == StateFailed {
		return false
	}
	if it.limit > 0 && it.yielded >= it.limit {
		// Early stop: the remaining cursor is simply abandoned.
		it.state = StateDone
		return false
	}

	for {
		for it.page != nil && it.idx < len(it.page.Records) {
			rec := it.page.Records[it.idx]
			it.idx++

			row, err := it.plan.MapRecord(rec)
			if err != nil {
				it.fail(err)
				return false
			}
			if !it.matchesRemainder(row) {
				continue
			}
			it.row = row
			it.yielded++
			it.state = StateYielding
			return true
		}

		if it.fetched && it.cursor == "" {
			it.state = StateDone
			return false
		}
		if err := it.fetch(); err != nil {
			it.fail(err)
			return false
		}
	}
}

// Values returns the current row. Valid only after a true Next.
func (it *Iterator) Values() ([]any, error) {
	if it.state != StateYielding {
		return nil, errors.New("scan iterator is not positioned on a row")
	}
	return it.row, nil
}

// Err returns the terminal error of a failed scan, nil otherwise.
func (it *Iterator) Err() error { return it.err }

// Close abandons the scan and releases the session's HTTP resources.
// Safe to call at any point, including mid-scan and after exhaustion.
func (it *Iterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.state != StateFailed {
		it.state = StateDone
	}
	it.client.Close()
	return nil
}

// fetch pulls the next page into memory, replacing the previous one.
func (it *Iterator) fetch() error {
	it.state = StateFetching

	req, err := it.w.BuildRequest(it.tableOpts, it.push, it.pageSize, it.cursor)
	if err != nil {
		return err
	}
	body, err := it.client.Get(it.ctx, req)
	if err != nil {
		if it.w.EmptyOnNotFound() && remote.IsStatus(err, http.StatusNotFound) {
			it.page = &wrapper.Page{}
			it.idx = 0
			it.cursor = ""
			it.fetched = true
			return nil
		}
		return err
	}
	page, err := it.w.ParsePage(it.tableOpts, body)
	if err != nil {
		return err
	}

	it.page = page
	it.idx = 0
	it.cursor = page.Cursor
	it.fetched = true
	it.pages++
	log.Debug().
		Str("server", it.server).
		Int("page", it.pages).
		Int("records", len(page.Records)).
		Bool("more", page.Cursor != "").
		Msg("scan page fetched")
	return nil
}

// matchesRemainder applies the predicates the remote could not evaluate.
func (it *Iterator) matchesRemainder(row []any) bool {
	for _, q := range it.push.Remainder {
		i, ok := it.colIndex[q.Column]
		if !ok {
			return false
		}
		if !q.Matches(row[i]) {
			return false
		}
	}
	return true
}

func (it *Iterator) fail(err error) {
	it.err = err
	it.state = StateFailed
	log.Debug().Str("server", it.server).Err(err).Msg("scan failed")
}
