// Package notifications sends push events about episode and queue lifecycle
// via ntfy. The service degrades to a noop when no topic is configured.
package notifications
