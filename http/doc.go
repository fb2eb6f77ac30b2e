// Package http exposes the file store over HTTP: the public token-based
// redirect endpoint and the admin JSON API. Session handling and UI
// rendering live outside this module; callers inject an authentication
// check at construction time.
package http
