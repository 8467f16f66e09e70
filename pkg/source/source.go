// Package source describes where a configuration value came from. A Source
// is attached to every write and surfaced through the store's GetSource.
package source

import "fmt"

// Type enumerates the origin categories.
type Type int

const (
	// Unknown is the fallback when no origin could be attributed.
	Unknown Type = iota
	// File marks a value read from a configuration file.
	File
	// EnvironmentVariable marks a value overlaid from the process
	// environment.
	EnvironmentVariable
	// Provider marks a value hydrated by a value provider.
	Provider
	// SetProgrammatically marks a value written through a direct API call.
	SetProgrammatically
)

// Source is the origin tag attached to a stored value. Name holds the file
// path, environment variable name, or provider name depending on Type.
type Source struct {
	Type Type
	Name string
}

// FromFile tags a value as read from the file at path.
func FromFile(path string) Source {
	return Source{Type: File, Name: path}
}

// FromEnvVar tags a value as overlaid from the named environment variable.
func FromEnvVar(name string) Source {
	return Source{Type: EnvironmentVariable, Name: name}
}

// FromProvider tags a value as hydrated by the named provider.
func FromProvider(name string) Source {
	return Source{Type: Provider, Name: name}
}

// Programmatic tags a value as written through a direct API call.
func Programmatic() Source {
	return Source{Type: SetProgrammatically}
}

func (s Source) String() string {
	switch s.Type {
	case File:
		return fmt.Sprintf("File(%s)", s.Name)
	case EnvironmentVariable:
		return fmt.Sprintf("EnvVar(%s)", s.Name)
	case Provider:
		return fmt.Sprintf("Provider(%s)", s.Name)
	case SetProgrammatically:
		return "SetProgrammatically"
	}
	return "Unknown"
}
