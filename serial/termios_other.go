//go:build !linux

package serial

func openTermios(device string, config Config) (Port, error) {
	return nil, ErrDriverNotAvail
}
