package c5store

import "path/filepath"

// DefaultConfigPaths builds the conventional layered path list for a config
// directory: common settings, then release environment, environment, region,
// and the environment-region pair, each overriding the last.
func DefaultConfigPaths(configDir, releaseEnv, env, region string) []string {
	return []string{
		filepath.Join(configDir, "common.yaml"),
		filepath.Join(configDir, releaseEnv+".yaml"),
		filepath.Join(configDir, env+".yaml"),
		filepath.Join(configDir, region+".yaml"),
		filepath.Join(configDir, env+"-"+region+".yaml"),
	}
}
