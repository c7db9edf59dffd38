// Package cli holds the argument handling shared by the serve commands.
package cli

import (
	"fmt"
	"strconv"

	"github.com/f4ah6o/devserve-go/internal/config"
)

// UsageError is a bad command line. Commands print it and exit 1 before
// opening any socket.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// ParsePort reads the optional positional port argument.
func ParsePort(args []string, def int) (int, error) {
	switch len(args) {
	case 0:
		return def, nil
	case 1:
	default:
		return 0, &UsageError{Msg: fmt.Sprintf("Too many arguments: %q", args)}
	}

	port, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, &UsageError{Msg: "Invalid port number: " + args[0]}
	}
	if err := config.ValidPort(port); err != nil {
		return 0, &UsageError{Msg: "Invalid port number: " + err.Error()}
	}
	return port, nil
}
