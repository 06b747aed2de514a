//go:build !linux && !windows && !darwin

package native

func openOS(Options) (*Backend, error) {
	return nil, ErrUnsupportedPlatform
}
