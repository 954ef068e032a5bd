//go:build !vkfft || !cgo
// +build !vkfft !cgo

package fft

import "github.com/pkg/errors"

func newNativeTransform(Config) (transformer, error) {
	return nil, errors.New("built without GPU support (vkfft build tag)")
}
