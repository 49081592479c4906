/*
Package observability turns lab lifecycle events into prometheus metrics.

The Collector never reads the lab directly. Everything it reports arrives through
domain.LifecycleHooks, so it can be composed with other hooks (event streaming,
audit logging) via domain.ComposeHooks.
*/
package observability
