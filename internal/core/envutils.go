package core

import "os"

// GetEnv looks up an environment variable by its bare name first and then
// under the GEMINI_MCP_ prefix, returning the first non-empty value. Both
// spellings are accepted everywhere the server reads the environment.
func GetEnv(key string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return os.Getenv("GEMINI_MCP_" + key)
}
