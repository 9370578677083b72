// Package proxer provides a client for the Proxer web API.
//
// Every API call is described by a Request (method, group, function and
// arguments). A Client combines it with its Key, optional session token and
// Config into a URL of the form
//
//	https://proxer.me/api/v1/{group}/{function}
//
// plus the authentication headers, sends it through a Transport and
// normalizes the JSON reply into a Response.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := proxer.New(
//		proxer.SecretKey("your-api-key"),
//		proxer.WithLogger(logger),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	req := proxer.Get("info", "getEntry").WithQuery("id", "53")
//	resp, err := client.MakeRequest(ctx, req)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := resp.Err(); err != nil {
//		// the API rejected the request
//	}
//
// Use TestKey instead of a real key to flag requests as test traffic.
//
// Requests built with Authenticated carry the session token of the client.
// The token comes from a login flow outside this package and is attached
// with Client.WithToken, which returns a new Client.
//
// # Error Handling
//
// MakeRequest returns *Error values of four kinds:
//
//   - KindInvalidParameters: the request or client is malformed
//   - KindUnexpectedResponse: non-200 status or a body that is not an object
//   - KindTransport: the HTTP exchange itself failed
//   - KindUnknown: an internal invariant was violated
//
// Match them with errors.Is against ErrInvalidParameters,
// ErrUnexpectedResponse, ErrTransport and ErrUnknown, or use errors.As to
// inspect the raw response:
//
//	var perr *proxer.Error
//	if errors.As(err, &perr) && perr.Response != nil {
//		fmt.Println(perr.Response.Status)
//	}
package proxer
