// ABOUTME: Plugin detection for request logging.
// ABOUTME: Maps an API path to the plugin that serves it.

package logging

import "strings"

// GetPluginFromPath determines which plugin handles a given path
func GetPluginFromPath(path string) string {
	switch {
	case path == "/api/admins" || strings.HasPrefix(path, "/api/admins/"):
		return "admins"
	case path == "/api/logs" || strings.HasPrefix(path, "/api/logs/"):
		return "requestlog"
	}
	return "unknown"
}

// shouldRecord reports whether a request belongs in the request log. Only API
// traffic is kept, and reads of the log itself are skipped.
func shouldRecord(path string) bool {
	if !strings.HasPrefix(path, "/api/") {
		return false
	}
	return GetPluginFromPath(path) != "requestlog"
}
