// Package env tells local development apart from production deployments.
package env

import "os"

type Environment string

const (
	Local      Environment = "local"
	Production Environment = "production"

	Key string = "ENV"
)

func (e Environment) Valid() bool {
	switch e {
	case Local, Production:
		return true
	}
	return false
}

// Parse maps a raw value to an Environment, falling back to Local.
func Parse(v string) Environment {
	e := Environment(v)
	if !e.Valid() {
		return Local
	}
	return e
}

var Current Environment = Local

func init() {
	Current = Parse(os.Getenv(Key))
}
