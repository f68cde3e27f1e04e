// Command coursehub is a terminal client for a CourseHub server: sign in,
// browse and search reviews, and add, edit or delete your own.
//
//	coursehub signin --email ann@example.com --password '...'
//	coursehub reviews --q algo --order asc
//	coursehub review add --course Algorithms --rating 5 --comment "Great"
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sakif/coursehub/internal/apperror"
	"github.com/sakif/coursehub/internal/authoring"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(exitCode(err))
	}
}

// describe prints what the user can act on: the server's message for input
// and permission problems, "please try again" for outages.
func describe(err error) string {
	if apperror.IsDomain(err) {
		return authoring.Message(err)
	}
	return err.Error()
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, apperror.ErrUnavailable):
		return 3
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrForbidden):
		return 4
	}
	return 1
}
