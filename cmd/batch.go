package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/s0up4200/proxer/proxer"
	"github.com/s0up4200/proxer/query"
)

var batchConcurrency int

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Send the requests listed in a YAML file",
	Long: `Send every request listed in FILE concurrently and print one result per
request, in file order. A failing request does not stop the others.

Example file:

  - name: entry
    group: info
    function: getEntry
    query:
      id: "53"
  - name: login
    group: user
    function: login
    method: POST
    body:
      username: alice
      password: secret
    expect: '!response.error'`,
	Args:    cobra.ExactArgs(1),
	PreRunE: initializeApp,
	RunE:    runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0, "maximum concurrent requests (default from config)")
}

// batchItem is one request descriptor in a batch file
type batchItem struct {
	Name     string            `yaml:"name"`
	Group    string            `yaml:"group"`
	Function string            `yaml:"function"`
	Method   string            `yaml:"method"`
	Auth     bool              `yaml:"auth"`
	Query    map[string]string `yaml:"query"`
	Body     map[string]string `yaml:"body"`
	Headers  map[string]string `yaml:"headers"`
	Expect   string            `yaml:"expect"`
}

// Request converts the item into a descriptor. Unknown methods are passed
// through so the client reports them.
func (b batchItem) Request() proxer.Request {
	method := proxer.MethodGet
	if b.Method != "" {
		method = proxer.Method(strings.ToUpper(b.Method))
	}

	req := proxer.Request{
		Method:       method,
		Group:        b.Group,
		Function:     b.Function,
		RequiresAuth: b.Auth,
	}
	for k, v := range b.Query {
		req = req.WithQuery(k, v)
	}
	for k, v := range b.Body {
		req = req.WithBody(k, v)
	}
	for k, v := range b.Headers {
		req = req.WithHeader(k, v)
	}
	return req
}

// batchResult is the outcome of one batch item
type batchResult struct {
	Name     string           `json:"name"`
	OK       bool             `json:"ok"`
	Error    string           `json:"error,omitempty"`
	Response *proxer.Response `json:"response,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	items, err := loadBatch(args[0])
	if err != nil {
		return err
	}

	limit := cfg.Batch.Concurrency
	if batchConcurrency > 0 {
		limit = batchConcurrency
	}

	logger.Info().
		Int("requests", len(items)).
		Int("concurrency", limit).
		Msg("Running batch")

	results, err := executeBatch(cmd.Context(), client, items, limit, logger)
	if err != nil {
		return err
	}

	return reportBatch(cmd.OutOrStdout(), results)
}

func loadBatch(path string) ([]batchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return parseBatch(data)
}

func parseBatch(data []byte) ([]batchItem, error) {
	var items []batchItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("batch file contains no requests")
	}

	for i := range items {
		if items[i].Name == "" {
			items[i].Name = fmt.Sprintf("%d:%s/%s", i+1, items[i].Group, items[i].Function)
		}
	}
	return items, nil
}

// executeBatch sends all items with at most limit requests in flight.
// Expectations are compiled up front so a typo fails the whole batch before
// anything is sent.
func executeBatch(ctx context.Context, r proxer.Requester, items []batchItem, limit int, log zerolog.Logger) ([]batchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	compiler := query.NewCompiler(query.WithCache(len(items)))
	programs := make([]*query.Program, len(items))
	for i, item := range items {
		if item.Expect == "" {
			continue
		}
		p, err := compiler.Compile(item.Expect)
		if err != nil {
			return nil, fmt.Errorf("batch item %q: %w", item.Name, err)
		}
		programs[i] = p
	}

	results := make([]batchResult, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))

	for i, item := range items {
		g.Go(func() error {
			results[i] = executeItem(ctx, r, item, programs[i])
			if !results[i].OK {
				log.Warn().
					Str("name", item.Name).
					Str("error", results[i].Error).
					Msg("Batch request failed")
			}
			return nil
		})
	}

	// Items never return errors, failures are kept per result
	_ = g.Wait()

	return results, nil
}

func executeItem(ctx context.Context, r proxer.Requester, item batchItem, program *query.Program) batchResult {
	result := batchResult{Name: item.Name}

	resp, err := r.MakeRequest(ctx, item.Request())
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Response = resp

	if program == nil {
		if err := resp.Err(); err != nil {
			result.Error = err.Error()
			return result
		}
		result.OK = true
		return result
	}

	matched, err := program.Match(resp)
	switch {
	case err != nil:
		result.Error = err.Error()
	case !matched:
		result.Error = fmt.Sprintf("expectation not met: %s", program.Expression())
	default:
		result.OK = true
	}
	return result
}

func reportBatch(out io.Writer, results []batchResult) error {
	var failed int
	for _, result := range results {
		if !result.OK {
			failed++
		}
	}

	if err := writeJSON(out, results); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d batch requests failed", failed, len(results))
	}
	return nil
}
