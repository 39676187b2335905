//go:build !unix

package main

import "errors"

func detach([]string) (int, error) {
	return 0, errors.New("daemon mode is only supported on unix")
}
