package llama

import "fmt"

type invalidConfigError string

func (e invalidConfigError) Error() string {
	return fmt.Sprintf("invalid llama config: %s", string(e))
}

func errInvalid(msg string) error { return invalidConfigError(msg) }
