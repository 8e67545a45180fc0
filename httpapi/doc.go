// Package httpapi exposes the booking engine over HTTP: a chi router with
// book, return, and availability endpoints, request validation against the
// device catalog, and the mapping from the engine's error taxonomy onto
// HTTP status codes.
package httpapi
