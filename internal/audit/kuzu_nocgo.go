//go:build !cgo

package audit

import "errors"

func openKuzu(string) (Store, error) {
	return nil, errors.New("audit: the kuzu backend requires a cgo build")
}
