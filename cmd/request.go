package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/proxer/proxer"
	"github.com/s0up4200/proxer/query"
)

var (
	requestPost    bool
	requestAuth    bool
	requestQuery   []string
	requestBody    []string
	requestHeaders []string
	requestExpr    string
)

// requestCmd represents the request command
var requestCmd = &cobra.Command{
	Use:   "request GROUP FUNCTION",
	Short: "Send a single request to the Proxer API",
	Long: `Send one request to /v1/GROUP/FUNCTION and print the normalized response.

Examples:
  proxer request info getEntry -q id=53
  proxer request user login --post -b username=alice -b password=secret
  proxer request ucp getList --auth --token SESSION --expr 'len(data)'

The command exits non-zero when the API reports an error.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: initializeApp,
	RunE:    runRequest,
}

func init() {
	rootCmd.AddCommand(requestCmd)

	requestCmd.Flags().BoolVar(&requestPost, "post", false, "send a POST request")
	requestCmd.Flags().BoolVar(&requestAuth, "auth", false, "attach the session token")
	requestCmd.Flags().StringArrayVarP(&requestQuery, "query", "q", nil, "query argument as key=value")
	requestCmd.Flags().StringArrayVarP(&requestBody, "body", "b", nil, "form body argument as key=value (POST only)")
	requestCmd.Flags().StringArrayVarP(&requestHeaders, "header", "H", nil, "extra header as key=value")
	requestCmd.Flags().StringVarP(&requestExpr, "expr", "e", "", "expression evaluated against the response")
}

func runRequest(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args[0], args[1], requestOptions{
		post:    requestPost,
		auth:    requestAuth,
		query:   requestQuery,
		body:    requestBody,
		headers: requestHeaders,
	})
	if err != nil {
		return err
	}

	var program *query.Program
	if requestExpr != "" {
		program, err = query.NewCompiler().Compile(requestExpr)
		if err != nil {
			return err
		}
	}

	logger.Debug().
		Str("method", string(req.Method)).
		Str("path", req.Path()).
		Msg("Sending request")

	return executeRequest(cmd.Context(), client, req, program, cmd.OutOrStdout())
}

type requestOptions struct {
	post    bool
	auth    bool
	query   []string
	body    []string
	headers []string
}

// buildRequest turns command line arguments into a request descriptor
func buildRequest(group, function string, opts requestOptions) (proxer.Request, error) {
	req := proxer.Get(group, function)
	if opts.post {
		req = proxer.Post(group, function)
	} else if len(opts.body) > 0 {
		return proxer.Request{}, fmt.Errorf("body arguments require --post")
	}
	if opts.auth {
		req = req.Authenticated()
	}

	for _, arg := range opts.query {
		k, v, err := splitPair(arg)
		if err != nil {
			return proxer.Request{}, fmt.Errorf("invalid query argument: %w", err)
		}
		req = req.WithQuery(k, v)
	}
	for _, arg := range opts.body {
		k, v, err := splitPair(arg)
		if err != nil {
			return proxer.Request{}, fmt.Errorf("invalid body argument: %w", err)
		}
		req = req.WithBody(k, v)
	}
	for _, arg := range opts.headers {
		k, v, err := splitPair(arg)
		if err != nil {
			return proxer.Request{}, fmt.Errorf("invalid header: %w", err)
		}
		req = req.WithHeader(k, v)
	}

	return req, nil
}

func splitPair(arg string) (string, string, error) {
	k, v, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return "", "", fmt.Errorf("%q is not key=value", arg)
	}
	return strings.TrimSpace(k), v, nil
}

// executeRequest sends req and prints the response, or the expression result
// when program is set
func executeRequest(ctx context.Context, r proxer.Requester, req proxer.Request, program *query.Program, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := r.MakeRequest(ctx, req)
	if err != nil {
		return err
	}

	var result any = resp
	if program != nil {
		result, err = program.Eval(resp)
		if err != nil {
			return err
		}
	}

	if err := writeJSON(out, result); err != nil {
		return err
	}

	return resp.Err()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
