//go:build !(cgo && netlib)

package utils

var NetlibBLAS = false
