// Package syncano is a client for the Syncano data platform.
//
// # Connection Engines
//
// There are 3 different connection engines you can use to talk to Syncano:
// REST over HTTP, the sync server over a raw TCP socket and the sync server
// over WebSocket.
//
// Provide a proper endpoint URL to [FromEndpointURLString] so that it chooses
// the right engine for you:
//
//   - http:// and https:// use the REST API. Every call is an independent request.
//   - tcp:// and tls:// open a session on the sync server socket.
//   - ws:// and wss:// open the same session over WebSocket.
//
// WebSocket sessions use gorilla/websocket unless the connection config asks
// for lxzan/gws with WebSocket set to connection.WebSocketGWS.
//
// Sync sessions are long lived. They keep themselves alive with pings and,
// when a [retry.Retryer] is configured, reconnect after the socket drops,
// resume the session and restore project and collection subscriptions.
// Only sync sessions receive notifications; see [SubscriptionService].
//
// # Resources
//
// Operations are grouped by resource on [DB]: [DB.Projects], [DB.Collections],
// [DB.Folders], [DB.Data] and [DB.Subscriptions]. Each operation takes a
// request type from [github.com/syncano/syncano.go/pkg/models] and validates
// it before anything is sent. A request that fails validation returns a
// [*ValidationError]; a failure reported by Syncano returns a [*ServiceError].
//
//	errors.Is(err, constants.ErrInvalidArgument) // local validation failure
//	errors.Is(err, constants.ErrService)         // remote failure
//
// # Use Send for low-level control
//
// [Send] calls any remote method by name and decodes the reply into the
// type of your choice. It does not validate the parameters.
//
// [retry.Retryer]: https://pkg.go.dev/github.com/syncano/syncano.go/pkg/connection/retry#Retryer
package syncano
